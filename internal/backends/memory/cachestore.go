// Package memory provides in-process store implementations. They are the
// default backend for single-node deployments and the test double everywhere
// else.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

// CacheStore implements ports.CacheStore with a map and lazy expiration on
// Get. Expired entries linger until read again; for the small working set of
// a checkout form that is fine, and it keeps Set/Get lock sections trivial.
type CacheStore struct {
	mu   sync.RWMutex
	data map[string]entry
}

type entry struct {
	val types.VerificationResult
	exp time.Time
}

func NewCacheStore() *CacheStore {
	return &CacheStore{data: make(map[string]entry)}
}

func (c *CacheStore) Get(_ context.Context, key string) (types.VerificationResult, bool, error) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.exp) {
		return types.VerificationResult{}, false, nil
	}
	return e.val, true, nil
}

func (c *CacheStore) Set(_ context.Context, key string, value types.VerificationResult, ttl time.Duration) error {
	c.mu.Lock()
	c.data[key] = entry{val: value, exp: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}
