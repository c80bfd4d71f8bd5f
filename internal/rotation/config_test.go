package rotation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixeldeck/pixeldeck/internal/images"
)

func TestMemoryConfigStoreDefaults(t *testing.T) {
	s := NewMemoryConfigStore()

	cfg, err := s.Load(context.Background(), "unseen")
	require.NoError(t, err)
	assert.False(t, cfg.Enabled, "rotation should default to disabled")
	assert.Equal(t, 15, cfg.DefaultDuration)
	assert.Equal(t, images.AllowlistStrict, cfg.AllowlistMode)
}

func TestMemoryConfigStoreRoundTrip(t *testing.T) {
	s := NewMemoryConfigStore()
	in := Config{
		Enabled:         true,
		DefaultDuration: 20,
		PagesPath:       "/opt/pages/bench.yaml",
		AllowlistMode:   images.AllowlistPermissive,
		Variables:       map[string]any{"room": "office"},
	}
	require.NoError(t, s.Save(context.Background(), "bench", in))

	got, err := s.Load(context.Background(), "bench")
	require.NoError(t, err)
	assert.Equal(t, 20, got.DefaultDuration)
	assert.Equal(t, in.PagesPath, got.PagesPath)
	assert.Equal(t, images.AllowlistPermissive, got.AllowlistMode)

	// Devices are isolated from each other.
	other, err := s.Load(context.Background(), "other")
	require.NoError(t, err)
	assert.False(t, other.Enabled, "unrelated device picked up saved config")
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{Enabled: true, DefaultDuration: 0, AllowlistMode: "bogus"}
	cfg.normalize()
	assert.Equal(t, 15, cfg.DefaultDuration, "duration floor")
	assert.Equal(t, images.AllowlistStrict, cfg.AllowlistMode, "mode coercion")
}
