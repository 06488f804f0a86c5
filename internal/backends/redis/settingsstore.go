package redis

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

const settingsKeyName = "_wcv_settings"

// SettingsStore keeps the whole settings document under a single JSON key.
type SettingsStore struct {
	cli *redis.Client
}

func NewSettingsStore(cli *redis.Client) *SettingsStore {
	return &SettingsStore{cli: cli}
}

func (s *SettingsStore) Load(ctx context.Context) (types.Settings, error) {
	out := s.cli.Get(ctx, settingsKeyName)
	if out.Err() != nil {
		if errors.Is(out.Err(), redis.Nil) {
			return types.DefaultSettings(), nil
		}
		return types.Settings{}, types.Err(types.ErrStoreAccess, out.Err(), "")
	}
	var cfg types.Settings
	if err := json.Unmarshal([]byte(out.Val()), &cfg); err != nil {
		return types.Settings{}, types.Err(types.ErrStoreAccess, err, "corrupt settings")
	}
	return cfg, nil
}

func (s *SettingsStore) Save(ctx context.Context, cfg types.Settings) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	prev, err := s.Load(ctx)
	if err != nil {
		return err
	}
	cfg = types.WithRotatedSalt(prev, cfg)

	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	out := s.cli.Set(ctx, settingsKeyName, string(b), 0)
	if out.Err() != nil {
		return types.Err(types.ErrStoreAccess, out.Err(), "")
	}
	return nil
}
