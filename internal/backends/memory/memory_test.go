package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

func TestCacheStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewCacheStore()

	_, found, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	want := types.VerificationResult{IsWhatsApp: true, Number: "5511988887777", Name: "Ana"}
	require.NoError(t, c.Set(ctx, "k", want, time.Minute))

	got, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
}

func TestCacheStoreExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewCacheStore()

	require.NoError(t, c.Set(ctx, "k", types.VerificationResult{IsWhatsApp: true}, -time.Second))

	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found, "entry with elapsed TTL must read as a miss")
}

func TestSettingsStoreDefaults(t *testing.T) {
	st := NewSettingsStore()
	s, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.DefaultSettings(), s)
	assert.False(t, s.Configured())
}

func TestSettingsStoreSaveRotatesSaltOnCredentialChange(t *testing.T) {
	ctx := context.Background()
	st := NewSettingsStore()

	s := types.DefaultSettings()
	s.APIBaseURL = "https://evo.example.com"
	s.APIKey = "k"
	s.InstanceName = "shop"
	require.NoError(t, st.Save(ctx, s))

	saved, err := st.Load(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, saved.CacheSalt, "save must assign a salt")

	// non-credential change keeps the salt
	saved.ShowModal = false
	require.NoError(t, st.Save(ctx, saved))
	after, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved.CacheSalt, after.CacheSalt)

	// credential change rotates it
	after.APIKey = "k2"
	require.NoError(t, st.Save(ctx, after))
	rotated, err := st.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, after.CacheSalt, rotated.CacheSalt)
}

func TestSettingsStoreSaveRejectsInvalid(t *testing.T) {
	st := NewSettingsStore()
	s := types.DefaultSettings()
	s.APIBaseURL = "https://evo.example.com"
	// missing api_key and instance_name
	assert.Error(t, st.Save(context.Background(), s))
}
