package ports

import (
	"context"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

// SettingsStore persists the service settings written by the admin surface
// and read by the verification flow. The flow reads fresh on every request;
// implementations MUST NOT require callers to cache.
// Save MUST rotate the cache salt when any credential field changed
// (see types.WithRotatedSalt), so stale cached verifications become
// unreachable without explicit deletion.
type SettingsStore interface {
	// Load returns the current settings, with defaults applied when nothing
	// has been saved yet.
	Load(ctx context.Context) (types.Settings, error)

	Save(ctx context.Context, s types.Settings) error
}
