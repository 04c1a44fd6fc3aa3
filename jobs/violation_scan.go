package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/aegis-authz/aegis/internal/jobs"
)

// ViolationScanJob inspects recent policy violations looking for users who
// keep hitting the same denied feature. A burst of denials is either a
// misconfigured policy or someone probing for access; both deserve a look.
type ViolationScanJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewViolationScanJob initialises the violation scan handler.
func NewViolationScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *ViolationScanJob {
	return &ViolationScanJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the violation scan logic.
func (j *ViolationScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("violation scan: handler not configured")
	}
	var payload ViolationScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowHours <= 0 {
		payload.WindowHours = 24
	}
	if payload.Threshold <= 0 {
		payload.Threshold = 10
	}

	tracker := j.metrics().Track(TaskAuthzViolationScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.Int("window_hours", payload.WindowHours),
		slog.Int("threshold", payload.Threshold),
	)
	logger.Info("starting violation scan")

	start := j.now()
	offenders, err := j.scan(ctx, payload, start)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	for _, o := range offenders {
		logger.Warn("repeated policy denials detected",
			slog.Int64("user_id", o.UserID),
			slog.Int64("feature_id", o.FeatureID),
			slog.Int64("denials", o.Count),
			slog.String("severity", o.Severity),
		)
		j.metrics().AddAnomalies(o.Severity, o.FeatureID, 1)
	}

	logger.Info("completed violation scan",
		slog.Int("offenders", len(offenders)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

type repeatOffender struct {
	UserID    int64
	FeatureID int64
	Count     int64
	Severity  string
}

func (j *ViolationScanJob) scan(ctx context.Context, payload ViolationScanPayload, now time.Time) ([]repeatOffender, error) {
	if j.Pool == nil {
		return nil, errors.New("violation scan: pool not configured")
	}
	since := now.Add(-time.Duration(payload.WindowHours) * time.Hour)
	rows, err := j.Pool.Query(ctx, `
		SELECT user_id, feature_id, COUNT(*) AS denials
		FROM policy_violations
		WHERE occurred_at >= $1
		GROUP BY user_id, feature_id
		HAVING COUNT(*) >= $2
		ORDER BY denials DESC`, since, payload.Threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offenders []repeatOffender
	for rows.Next() {
		var o repeatOffender
		if err := rows.Scan(&o.UserID, &o.FeatureID, &o.Count); err != nil {
			return nil, err
		}
		o.Severity = "MEDIUM"
		if o.Count >= int64(payload.Threshold)*3 {
			o.Severity = "HIGH"
		}
		offenders = append(offenders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return offenders, nil
}

func (j *ViolationScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAuthzViolationScan))
	}
	return slog.Default().With(slog.String("job", TaskAuthzViolationScan))
}

func (j *ViolationScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ViolationScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
