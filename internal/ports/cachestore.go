package ports

import (
	"context"
	"time"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

// CacheStore holds verification results keyed by hash(salt, normalized phone).
// TTL expiry is delegated entirely to the implementation; the verification
// flow never deletes entries — rotating the salt is the only invalidation
// mechanism, old keys simply become unreachable.
type CacheStore interface {
	// Get returns the cached result and true if present and not expired.
	Get(ctx context.Context, key string) (types.VerificationResult, bool, error)

	// Set stores a result under key for the given TTL.
	Set(ctx context.Context, key string, value types.VerificationResult, ttl time.Duration) error
}
