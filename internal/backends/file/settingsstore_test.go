package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	st, err := NewSettingsStore(filepath.Join(t.TempDir(), "wcv.yaml"))
	require.NoError(t, err)

	s, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.DefaultSettings(), s)
}

func TestHandEditedFileGetsDigestSalt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wcv.yaml")
	doc := "api_base_url: https://evo.example.com\napi_key: k\ninstance_name: shop\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	st, err := NewSettingsStore(path)
	require.NoError(t, err)

	s, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s.CredentialDigest(), s.CacheSalt)

	// editing a credential by hand changes the derived salt
	doc = "api_base_url: https://evo.example.com\napi_key: k2\ninstance_name: shop\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	require.NoError(t, st.reload())

	edited, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, s.CacheSalt, edited.CacheSalt)
}

func TestSaveRoundTripAndRotation(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wcv.yaml")
	st, err := NewSettingsStore(path)
	require.NoError(t, err)

	cfg := types.DefaultSettings()
	cfg.APIBaseURL = "https://evo.example.com"
	cfg.APIKey = "k"
	cfg.InstanceName = "shop"
	require.NoError(t, st.Save(ctx, cfg))

	// a fresh store reading the same file sees the persisted document
	again, err := NewSettingsStore(path)
	require.NoError(t, err)
	saved, err := again.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "shop", saved.InstanceName)
	require.NotEmpty(t, saved.CacheSalt)

	saved.APIKey = "k2"
	require.NoError(t, again.Save(ctx, saved))
	rotated, err := again.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, saved.CacheSalt, rotated.CacheSalt)
}

func TestSaveRejectsInvalid(t *testing.T) {
	st, err := NewSettingsStore(filepath.Join(t.TempDir(), "wcv.yaml"))
	require.NoError(t, err)

	cfg := types.DefaultSettings()
	cfg.CacheTTLSeconds = -1
	assert.Error(t, st.Save(context.Background(), cfg))
}
