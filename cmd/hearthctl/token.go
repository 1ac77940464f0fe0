package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hearth-labs/hearth/internal/auth"
	"github.com/hearth-labs/hearth/internal/config"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator token",
		Long: `Issue a bearer token for the admin API, signed with JWT_SECRET.

Examples:
  JWT_SECRET=... hearthctl token --subject alice
  JWT_SECRET=... hearthctl token --subject ci --ttl 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if subject == "" {
				return errors.New("--subject is required")
			}

			env, err := config.LoadEnv()
			if err != nil {
				return err
			}

			svc, err := auth.NewTokenService(auth.Config{
				Secret:   env.JWTSecret,
				Issuer:   env.JWTIssuer,
				Audience: env.JWTAudience,
				TTL:      ttl,
			})
			if err != nil {
				return err
			}

			token, expires, err := svc.Issue(subject, auth.RoleOperator)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "operator name recorded in audit logs")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	return cmd
}
