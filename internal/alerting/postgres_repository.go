package alerting

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearth-labs/hearth/internal/metrics"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL alert repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save inserts an alert. Saving the same alert twice is a no-op.
func (r *PostgresRepository) Save(ctx context.Context, alert Alert) error {
	query := `
		INSERT INTO alerts (id, type, severity, message, value, threshold, sample, recommendations, raised_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	var sampleJSON []byte
	if alert.Sample != nil {
		b, err := json.Marshal(alert.Sample)
		if err != nil {
			return err
		}
		sampleJSON = b
	}

	recommendations := alert.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}
	recJSON, err := json.Marshal(recommendations)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, query,
		alert.ID,
		string(alert.Type),
		string(alert.Severity),
		alert.Message,
		alert.Value,
		alert.Threshold,
		sampleJSON,
		recJSON,
		alert.Timestamp,
	)
	return err
}

// Recent returns stored alerts, newest first.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]Alert, error) {
	query := `
		SELECT id::text, type, severity, message, value, threshold, sample, recommendations, raised_at
		FROM alerts
		ORDER BY raised_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var (
			alert      Alert
			alertType  string
			severity   string
			sampleJSON []byte
			recJSON    []byte
		)

		err := rows.Scan(
			&alert.ID,
			&alertType,
			&severity,
			&alert.Message,
			&alert.Value,
			&alert.Threshold,
			&sampleJSON,
			&recJSON,
			&alert.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		alert.Type = AlertType(alertType)
		alert.Severity = Severity(severity)

		if len(sampleJSON) > 0 {
			var s metrics.Sample
			if err := json.Unmarshal(sampleJSON, &s); err != nil {
				return nil, err
			}
			alert.Sample = &s
		}
		if err := json.Unmarshal(recJSON, &alert.Recommendations); err != nil {
			return nil, err
		}

		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}

var _ Repository = (*PostgresRepository)(nil)
