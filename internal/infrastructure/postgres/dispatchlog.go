// Package postgres provides PostgreSQL infrastructure components.
// The dispatch log is an append-only audit of fax attempts; it stores
// dispatch metadata only, never submission content.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Schema is the dispatch log DDL, applied by deployment tooling
const Schema = `
CREATE TABLE IF NOT EXISTS dispatch_log (
	id               BIGSERIAL PRIMARY KEY,
	submission_id    TEXT NOT NULL,
	form_type        TEXT NOT NULL,
	destination      TEXT NOT NULL,
	fax_id           TEXT,
	stage            TEXT NOT NULL,
	success          BOOLEAN NOT NULL,
	error            TEXT,
	provider_payload JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS dispatch_log_fax_id_idx ON dispatch_log (fax_id);
`

// DispatchRecord is one audit row
type DispatchRecord struct {
	ID              int64           `json:"id"`
	SubmissionID    string          `json:"submission_id"`
	FormType        string          `json:"form_type"`
	Destination     string          `json:"destination"`
	FaxID           *string         `json:"fax_id,omitempty"`
	Stage           string          `json:"stage"`
	Success         bool            `json:"success"`
	Error           *string         `json:"error,omitempty"`
	ProviderPayload json.RawMessage `json:"provider_payload,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// DispatchLog writes dispatch audit rows. A nil *DispatchLog is a valid
// no-op so the pipeline runs unchanged without a database configured.
type DispatchLog struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

// NewDispatchLog creates a dispatch log backed by pool
func NewDispatchLog(pool *pgxpool.Pool, logger *zap.Logger) *DispatchLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchLog{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("dispatch-log"),
	}
}

// Record appends one audit row. Failures are logged and returned but the
// caller treats them as non-fatal: an audit miss must not fail a fax.
func (l *DispatchLog) Record(ctx context.Context, rec *DispatchRecord) error {
	if l == nil || l.pool == nil {
		return nil
	}

	ctx, span := l.tracer.Start(ctx, "dispatch_log_record",
		trace.WithAttributes(
			attribute.String("submission_id", rec.SubmissionID),
			attribute.Bool("success", rec.Success),
		))
	defer span.End()

	query := `
		INSERT INTO dispatch_log (submission_id, form_type, destination, fax_id, stage, success, error, provider_payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := l.pool.QueryRow(ctx, query,
		rec.SubmissionID,
		rec.FormType,
		rec.Destination,
		rec.FaxID,
		rec.Stage,
		rec.Success,
		rec.Error,
		rec.ProviderPayload,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		l.logger.Error("dispatch log insert failed",
			zap.String("submission_id", rec.SubmissionID),
			zap.Error(err))
		span.RecordError(err)
		return fmt.Errorf("insert dispatch record: %w", err)
	}

	return nil
}

// Recent returns the latest audit rows, newest first
func (l *DispatchLog) Recent(ctx context.Context, limit int) ([]DispatchRecord, error) {
	if l == nil || l.pool == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, submission_id, form_type, destination, fax_id, stage, success, error, provider_payload, created_at
		FROM dispatch_log
		ORDER BY id DESC
		LIMIT $1
	`

	rows, err := l.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query dispatch log: %w", err)
	}
	defer rows.Close()

	var records []DispatchRecord
	for rows.Next() {
		var rec DispatchRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.SubmissionID,
			&rec.FormType,
			&rec.Destination,
			&rec.FaxID,
			&rec.Stage,
			&rec.Success,
			&rec.Error,
			&rec.ProviderPayload,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan dispatch record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
