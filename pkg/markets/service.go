package markets

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "markets:snapshot"

// Service serves market overview snapshots through a Redis read-through
// cache. A fresh cached snapshot is returned directly; otherwise the provider
// is hit and the cache repopulated.
type Service struct {
	provider    Provider
	redisClient *redis.Client
	indexes     []string
	commodities []string
	cacheTTL    time.Duration
}

// NewService creates a market overview service
func NewService(provider Provider, redisClient *redis.Client, indexes, commodities []string, cacheTTL time.Duration) *Service {
	return &Service{
		provider:    provider,
		redisClient: redisClient,
		indexes:     indexes,
		commodities: commodities,
		cacheTTL:    cacheTTL,
	}
}

// Overview returns the latest snapshot, preferring the cache. A cache miss or
// unreadable cache entry falls through to a live fetch.
func (s *Service) Overview(ctx context.Context) *Snapshot {
	if cached := s.cachedSnapshot(ctx); cached != nil {
		return cached
	}
	return s.Refresh(ctx)
}

// Refresh fetches a new snapshot from the provider and stores it in the
// cache. Snapshots with failed sections are still cached; the per-section
// errors travel with them.
func (s *Service) Refresh(ctx context.Context) *Snapshot {
	snapshot := FetchSnapshot(ctx, s.provider, s.indexes, s.commodities)

	if data, err := json.Marshal(snapshot); err == nil {
		s.redisClient.Set(ctx, snapshotKey, data, s.cacheTTL)
	}

	return snapshot
}

func (s *Service) cachedSnapshot(ctx context.Context) *Snapshot {
	data, err := s.redisClient.Get(ctx, snapshotKey).Result()
	if err != nil {
		return nil
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil
	}
	return &snapshot
}
