package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed reads over the audit tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AccessLogWindow implements RepositoryPort.
func (r *Repository) AccessLogWindow(ctx context.Context, f TimelineFilters, limit, offset int) ([]AccessLogRow, error) {
	query, args := buildWindowQuery(
		`SELECT id, user_id, path, method, decision, reason, occurred_at FROM access_logs`,
		f, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: access log window: %w", err)
	}
	defer rows.Close()
	var result []AccessLogRow
	for rows.Next() {
		var row AccessLogRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.Path, &row.Method, &row.Decision, &row.Reason, &row.OccurredAt); err != nil {
			return nil, fmt.Errorf("audit: scan access log: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ViolationWindow implements RepositoryPort.
func (r *Repository) ViolationWindow(ctx context.Context, f TimelineFilters, limit, offset int) ([]ViolationRow, error) {
	query, args := buildWindowQuery(
		`SELECT id, user_id, feature_id, policy_id, attribute, expected_value, actual_value, reason, occurred_at FROM policy_violations`,
		f, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: violation window: %w", err)
	}
	defer rows.Close()
	var result []ViolationRow
	for rows.Next() {
		var row ViolationRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.FeatureID, &row.PolicyID, &row.Attribute, &row.ExpectedValue, &row.ActualValue, &row.Reason, &row.OccurredAt); err != nil {
			return nil, fmt.Errorf("audit: scan violation: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// buildWindowQuery appends shared filter clauses. The decision filter only
// applies to access_logs; violations never carry one.
func buildWindowQuery(base string, f TimelineFilters, limit, offset int) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "occurred_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "occurred_at <= "+arg(f.To))
	}
	if f.UserID > 0 {
		clauses = append(clauses, "user_id = "+arg(f.UserID))
	}
	if f.Decision != "" && strings.Contains(base, "access_logs") {
		clauses = append(clauses, "decision = "+arg(f.Decision))
	}
	query := base
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY occurred_at DESC LIMIT " + arg(limit) + " OFFSET " + arg(offset)
	return query, args
}
