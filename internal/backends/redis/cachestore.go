package redis

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

const cacheKeyNameTemplate = "_wcv_chk_"

// CacheStore implements ports.CacheStore on a Redis string per key, letting
// Redis handle TTL expiry entirely.
type CacheStore struct {
	cli *redis.Client
}

func NewCacheStore(cli *redis.Client) *CacheStore {
	return &CacheStore{cli: cli}
}

func (s *CacheStore) Get(ctx context.Context, key string) (types.VerificationResult, bool, error) {
	out := s.cli.Get(ctx, cacheKeyNameTemplate+key)
	if out.Err() != nil {
		if errors.Is(out.Err(), redis.Nil) {
			return types.VerificationResult{}, false, nil
		}
		return types.VerificationResult{}, false, types.Err(types.ErrStoreAccess, out.Err(), "")
	}
	var result types.VerificationResult
	if err := json.Unmarshal([]byte(out.Val()), &result); err != nil {
		return types.VerificationResult{}, false, types.Err(types.ErrStoreAccess, err, "corrupt cache entry")
	}
	return result, true, nil
}

func (s *CacheStore) Set(ctx context.Context, key string, value types.VerificationResult, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	out := s.cli.Set(ctx, cacheKeyNameTemplate+key, string(b), ttl)
	if out.Err() != nil {
		return types.Err(types.ErrStoreAccess, out.Err(), "")
	}
	return nil
}
