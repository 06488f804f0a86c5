// Package file provides a YAML-file settings backend with hot reload, for
// deployments that manage configuration through files rather than an admin
// endpoint.
package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-yaml"
	log "github.com/sirupsen/logrus"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

// SettingsStore reads settings from a YAML file and keeps an in-memory copy
// current via fsnotify, so per-request Loads stay cheap while edits on disk
// take effect without a restart.
//
// A hand-edited file usually carries no cache_salt; in that case the salt
// falls back to a digest of the credential fields, so editing any of them
// still re-keys the verification cache.
type SettingsStore struct {
	path string

	mu sync.RWMutex
	s  types.Settings
}

func NewSettingsStore(path string) (*SettingsStore, error) {
	st := &SettingsStore{path: path}
	if err := st.reload(); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *SettingsStore) Load(_ context.Context) (types.Settings, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s, nil
}

// Save writes the document back to disk with the salt rotated if needed.
// The watcher will pick the write up as well; reload is idempotent.
func (st *SettingsStore) Save(_ context.Context, cfg types.Settings) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	cfg = types.WithRotatedSalt(st.s, cfg)
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(st.path, b, 0o600); err != nil {
		return types.Err(types.ErrStoreAccess, err, "")
	}
	st.s = cfg
	return nil
}

// Watch reloads the file whenever it changes on disk until ctx is done.
// Watching the directory rather than the file survives the rename dance
// editors and configmap mounts do on save.
func (st *SettingsStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(st.path)); err != nil {
		_ = watcher.Close()
		return err
	}
	go func() {
		defer func() {
			_ = watcher.Close()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(st.path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if err := st.reload(); err != nil {
					log.WithError(err).Error("settings file reload failed, keeping previous settings")
					continue
				}
				log.WithField("path", st.path).Info("settings file reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("settings file watcher error")
			}
		}
	}()
	return nil
}

func (st *SettingsStore) reload() error {
	b, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			st.mu.Lock()
			st.s = types.DefaultSettings()
			st.mu.Unlock()
			return nil
		}
		return types.Err(types.ErrStoreAccess, err, "reading %s", st.path)
	}
	cfg := types.DefaultSettings()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return types.Err(types.ErrStoreAccess, err, "parsing %s", st.path)
	}
	if cfg.CacheSalt == "" {
		cfg.CacheSalt = cfg.CredentialDigest()
	}
	st.mu.Lock()
	st.s = cfg
	st.mu.Unlock()
	return nil
}
