package memory

import (
	"context"
	"sync"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

// SettingsStore keeps settings in memory, seeded with defaults. Writes are
// lost on restart; configure a durable backend for production.
type SettingsStore struct {
	mu sync.RWMutex
	s  types.Settings
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{s: types.DefaultSettings()}
}

func (st *SettingsStore) Load(_ context.Context) (types.Settings, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s, nil
}

func (st *SettingsStore) Save(_ context.Context, s types.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	st.mu.Lock()
	st.s = types.WithRotatedSalt(st.s, s)
	st.mu.Unlock()
	return nil
}
