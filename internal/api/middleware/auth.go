package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hearth-labs/hearth/internal/api/models"
	"github.com/hearth-labs/hearth/internal/auth"
)

// TokenVerifier validates an operator bearer token and returns the
// operator name.
type TokenVerifier interface {
	VerifyOperator(token string) (string, error)
}

type operatorKey struct{}

// OperatorAuth requires a valid operator bearer token. Missing or invalid
// tokens get 401, tokens without the operator role get 403.
func OperatorAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, detail := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeAuthProblem(w, r, models.NewUnauthorized(GetRequestID(r.Context()), detail))
				return
			}

			operator, err := verifier.VerifyOperator(token)
			if err != nil {
				traceID := GetRequestID(r.Context())
				switch {
				case errors.Is(err, auth.ErrInsufficientRole):
					writeAuthProblem(w, r, models.NewForbidden(traceID, "operator role required"))
				case errors.Is(err, auth.ErrTokenExpired):
					writeAuthProblem(w, r, models.NewUnauthorized(traceID, "operator token has expired"))
				default:
					writeAuthProblem(w, r, models.NewUnauthorized(traceID, "invalid operator token"))
				}
				return
			}

			setLogOperator(r.Context(), operator)
			ctx := context.WithValue(r.Context(), operatorKey{}, operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an Authorization header value. On
// failure it returns an empty token and the reason.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "missing authorization header"
	}
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "invalid authorization header format"
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", "missing bearer token"
	}
	return token, ""
}

// writeAuthProblem lives here rather than in response to avoid an import
// cycle.
func writeAuthProblem(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	if problem.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="hearth"`)
	}
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// GetOperator returns the authenticated operator, or "" outside admin
// routes.
func GetOperator(ctx context.Context) string {
	if name, ok := ctx.Value(operatorKey{}).(string); ok {
		return name
	}
	return ""
}
