package flow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	log "github.com/sirupsen/logrus"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/ports"
	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

// NumberChecker is the single outbound call to the WhatsApp-existence API.
// Implementations make at most one attempt; the flow never retries.
type NumberChecker interface {
	CheckNumber(ctx context.Context, s types.Settings, phone string) (types.VerificationResult, error)
}

// CacheKey derives the cache key for a normalized phone under the current
// salt. Rotating the salt re-keys the entire cache at once.
func CacheKey(salt, phone string) string {
	h := sha256.Sum256([]byte(salt + "|" + phone))
	return "wcv_" + hex.EncodeToString(h[:16])
}

// Verify normalizes a phone number, applies caching and calls the upstream
// API on a miss — all within one request cycle. The returned bool reports
// whether the result came from cache.
//
// Exactly one cache write happens on a successful miss; none on a hit or any
// error path. Cache I/O failures degrade to a miss (reads) or are logged and
// dropped (writes) — they never fail the request.
func Verify(ctx context.Context,
	s types.Settings,
	cache ports.CacheStore,
	checker NumberChecker,
	rawPhone string,
) (types.VerificationResult, bool, error) {
	if rawPhone == "" {
		return types.VerificationResult{}, false, types.Err(types.ErrBadInput, nil, "phone not provided")
	}
	phone := NormalizePhone(rawPhone, s.Prefix())
	if phone == "" {
		return types.VerificationResult{}, false, types.Err(types.ErrBadInput, nil, "phone %q has no digits", rawPhone)
	}

	if !s.Configured() {
		return types.VerificationResult{}, false, types.Err(types.ErrNotConfigured, nil, "")
	}
	if s.StrictValidation {
		if err := ValidateStrict(phone); err != nil {
			return types.VerificationResult{}, false, err
		}
	}

	key := CacheKey(s.CacheSalt, phone)
	if cached, ok, err := cache.Get(ctx, key); err != nil {
		log.WithError(err).Warn("cache read failed, treating as miss")
	} else if ok {
		return cached, true, nil
	}

	result, err := checker.CheckNumber(ctx, s, phone)
	if err != nil {
		return types.VerificationResult{}, false, err
	}

	if ttl := s.CacheTTL(); ttl > 0 {
		if err := cache.Set(ctx, key, result, ttl); err != nil {
			log.WithError(err).Warn("cache write failed")
		}
	}
	return result, false, nil
}
