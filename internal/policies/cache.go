package policies

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/aegis-authz/aegis/internal/authz"
)

const cacheVersionKey = "aegis:policies:version"

// CachedSource implements authz.PolicySource over Redis with a version-
// stamped key per feature. Every policy write bumps the version, so a
// reader either sees the previous complete set or the new complete set,
// never a partially updated one. Redis outages degrade to direct store
// reads; only store errors fail the lookup (and, downstream, fail closed).
type CachedSource struct {
	repo   RepositoryPort
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCachedSource constructs the caching policy source. client may be nil,
// in which case every read goes to the repository.
func NewCachedSource(repo RepositoryPort, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{repo: repo, client: client, ttl: ttl, logger: logger}
}

// Bump invalidates all cached policy sets by advancing the version.
func (c *CachedSource) Bump(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

// GetPoliciesForFeature implements authz.PolicySource.
func (c *CachedSource) GetPoliciesForFeature(ctx context.Context, featureID int64) ([]authz.Policy, error) {
	if c.client == nil {
		return c.load(ctx, featureID)
	}

	key, err := c.buildKey(ctx, featureID)
	if err != nil {
		c.logger.Warn("policy cache version", slog.Any("error", err))
		return c.load(ctx, featureID)
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached []authz.Policy
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		c.logger.Warn("policy cache decode", slog.String("key", key))
	} else if err != redis.Nil {
		c.logger.Warn("policy cache read", slog.Any("error", err))
		return c.load(ctx, featureID)
	}

	// Deduplicate concurrent loads of the same feature.
	value, err, _ := c.group.Do(key, func() (any, error) {
		loaded, err := c.load(ctx, featureID)
		if err != nil {
			return nil, err
		}
		if encoded, err := json.Marshal(loaded); err == nil {
			if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
				c.logger.Warn("policy cache write", slog.Any("error", err))
			}
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]authz.Policy), nil
}

// Warm preloads a feature's policy set into the cache.
func (c *CachedSource) Warm(ctx context.Context, featureID int64) error {
	_, err := c.GetPoliciesForFeature(ctx, featureID)
	return err
}

func (c *CachedSource) buildKey(ctx context.Context, featureID int64) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("aegis:policies:%d:%d", featureID, ver), nil
}

// version returns the current cache version, initialising when missing.
func (c *CachedSource) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *CachedSource) load(ctx context.Context, featureID int64) ([]authz.Policy, error) {
	stored, err := c.repo.ListByFeature(ctx, featureID)
	if err != nil {
		return nil, err
	}
	result := make([]authz.Policy, 0, len(stored))
	for _, p := range stored {
		result = append(result, p.ToEngine())
	}
	return result, nil
}
