package policies

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	*mockRepository
	listCalls int
}

func (c *countingRepo) ListByFeature(ctx context.Context, featureID int64) ([]Policy, error) {
	c.listCalls++
	return c.mockRepository.ListByFeature(ctx, featureID)
}

func newCacheFixture(t *testing.T) (*countingRepo, *CachedSource) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &countingRepo{mockRepository: newMockRepository()}
	return repo, NewCachedSource(repo, client, 10*time.Minute, nil)
}

func TestCachedSourceServesFromCache(t *testing.T) {
	repo, source := newCacheFixture(t)
	repo.policies[1] = Policy{ID: 1, FeatureID: 7, Attribute: "department", Operator: "==", Value: "Finance"}

	first, err := source.GetPoliciesForFeature(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, int64(1), first[0].ID)

	second, err := source.GetPoliciesForFeature(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.listCalls, "second read must come from cache")
}

func TestCachedSourceBumpInvalidates(t *testing.T) {
	repo, source := newCacheFixture(t)
	repo.policies[1] = Policy{ID: 1, FeatureID: 7, Attribute: "department", Operator: "==", Value: "Finance"}

	_, err := source.GetPoliciesForFeature(context.Background(), 7)
	require.NoError(t, err)

	// Simulate a policy write: the set changes and the version is bumped.
	repo.policies[2] = Policy{ID: 2, FeatureID: 7, Attribute: "level", Operator: ">=", Value: "3"}
	require.NoError(t, source.Bump(context.Background()))

	after, err := source.GetPoliciesForFeature(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, after, 2, "bump must expose the full new set")
	assert.Equal(t, 2, repo.listCalls)
}

func TestCachedSourceEmptySetIsCached(t *testing.T) {
	repo, source := newCacheFixture(t)

	result, err := source.GetPoliciesForFeature(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, result)

	_, err = source.GetPoliciesForFeature(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls, "empty sets are cacheable; open-by-default features stay cheap")
}

func TestCachedSourceWithoutRedisFallsThrough(t *testing.T) {
	repo := &countingRepo{mockRepository: newMockRepository()}
	source := NewCachedSource(repo, nil, time.Minute, nil)
	repo.policies[1] = Policy{ID: 1, FeatureID: 7, Attribute: "region", Operator: "in", Value: `["EU"]`}

	result, err := source.GetPoliciesForFeature(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, result, 1)

	_, err = source.GetPoliciesForFeature(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}
