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

// PolicyWarmer pre-loads the policy cache for one feature. Satisfied by the
// policies cached source.
type PolicyWarmer interface {
	Warm(ctx context.Context, featureID int64) error
}

// CacheWarmupJob loads policy sets into the cache ahead of traffic so the
// first evaluation after a deploy or invalidation does not pay the database
// round trip.
type CacheWarmupJob struct {
	Pool    *pgxpool.Pool
	Warmer  PolicyWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCacheWarmupJob initialises the cache warmup handler.
func NewCacheWarmupJob(pool *pgxpool.Pool, warmer PolicyWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheWarmupJob {
	return &CacheWarmupJob{Pool: pool, Warmer: warmer, Logger: logger, Metrics: metrics}
}

// Handle executes the warmup.
func (j *CacheWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Warmer == nil {
		return errors.New("cache warmup: handler not configured")
	}
	var payload CacheWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskPolicyCacheWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := time.Now()
	featureIDs := payload.FeatureIDs
	if len(featureIDs) == 0 {
		ids, err := j.allFeatureIDs(ctx)
		if err != nil {
			resultErr = err
			j.logger().Error("list features", slog.Any("error", err))
			return resultErr
		}
		featureIDs = ids
	}

	warmed := 0
	for _, id := range featureIDs {
		if err := j.Warmer.Warm(ctx, id); err != nil {
			j.logger().Warn("warmup failed for feature",
				slog.Int64("feature_id", id), slog.Any("error", err))
			continue
		}
		warmed++
	}

	j.logger().Info("completed policy cache warmup",
		slog.Int("features", len(featureIDs)),
		slog.Int("warmed", warmed),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *CacheWarmupJob) allFeatureIDs(ctx context.Context) ([]int64, error) {
	if j.Pool == nil {
		return nil, errors.New("cache warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `SELECT id FROM features ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (j *CacheWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPolicyCacheWarmup))
	}
	return slog.Default().With(slog.String("job", TaskPolicyCacheWarmup))
}

func (j *CacheWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
