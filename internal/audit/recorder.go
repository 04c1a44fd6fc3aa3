package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-authz/aegis/internal/authz"
)

// Recorder implements authz.AuditSink on PostgreSQL. Both tables are
// append-only; nothing in this service updates or deletes rows (retention
// is an external concern). Every append runs under a bounded timeout so a
// slow audit store cannot stall evaluation indefinitely; the failure is
// returned to the engine, which surfaces it without changing the decision.
type Recorder struct {
	pool         *pgxpool.Pool
	writeTimeout time.Duration
}

// NewRecorder constructs a Recorder. writeTimeout bounds each append.
func NewRecorder(pool *pgxpool.Pool, writeTimeout time.Duration) *Recorder {
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	return &Recorder{pool: pool, writeTimeout: writeTimeout}
}

// AppendAccessLog appends one decision record.
func (r *Recorder) AppendAccessLog(ctx context.Context, entry authz.AccessLogEntry) error {
	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO access_logs (id, user_id, path, method, decision, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), entry.UserID, entry.Path, entry.Method, entry.Decision, entry.Reason, entry.At)
	if err != nil {
		return fmt.Errorf("audit: append access log: %w", err)
	}
	return nil
}

// AppendPolicyViolation appends one failed-policy record.
func (r *Recorder) AppendPolicyViolation(ctx context.Context, v authz.PolicyViolation) error {
	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO policy_violations (id, user_id, feature_id, policy_id, attribute, expected_value, actual_value, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New(), v.UserID, v.FeatureID, v.PolicyID, string(v.Attribute), v.ExpectedValue, v.ActualValue, v.Reason, v.At)
	if err != nil {
		return fmt.Errorf("audit: append policy violation: %w", err)
	}
	return nil
}
