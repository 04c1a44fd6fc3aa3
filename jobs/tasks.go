package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/aegis-authz/aegis/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuthzViolationScan inspects recent policy violations for repeat
	// offenders.
	TaskAuthzViolationScan = "authz:violation_scan"
	// TaskPolicyCacheWarmup pre-loads the policy cache for hot features.
	TaskPolicyCacheWarmup = "policy:cache_warmup"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ViolationScanPayload tunes the violation scan window and thresholds.
type ViolationScanPayload struct {
	WindowHours int `json:"window_hours"`
	Threshold   int `json:"threshold"`
}

// NewViolationScanTask constructs an Asynq task for the violation scan.
func NewViolationScanTask(payload ViolationScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuthzViolationScan, data), nil
}

// CacheWarmupPayload lists the features whose policies should be pre-loaded.
// An empty list means every registered feature.
type CacheWarmupPayload struct {
	FeatureIDs []int64 `json:"feature_ids"`
}

// NewCacheWarmupTask constructs an Asynq task for the cache warmup.
func NewCacheWarmupTask(payload CacheWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPolicyCacheWarmup, data), nil
}
