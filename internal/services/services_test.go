package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/shared"
	tu "github.com/desertthunder/tunex/internal/testing"
)

func ids(handles []models.SourceHandle) []string {
	return lo.Map(handles, func(h models.SourceHandle, _ int) string { return h.ID })
}

func TestRegistry(t *testing.T) {
	scripted := tu.NewScriptedSource(map[string]tu.Script{
		"audiobox": {Results: []models.RawResult{{Title: "Believer", PayloadRef: "ref"}}},
	})

	reg := NewRegistry()
	reg.Register(models.SourceHandle{ID: "vkm4", Tier: models.TierNormal}, scripted)
	reg.Register(models.SourceHandle{ID: "audiobox", Tier: models.TierPreferred}, scripted)
	reg.Register(models.SourceHandle{ID: "vkm4", Tier: models.TierNormal}, scripted)

	t.Run("Handles keeps registration order", func(t *testing.T) {
		assert.Equal(t, []string{"vkm4", "audiobox"}, ids(reg.Handles()))
	})

	t.Run("Query dispatches by ID", func(t *testing.T) {
		results, err := reg.Query(context.Background(), "audiobox", "believer", time.Second)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "ref", results[0].PayloadRef)
	})

	t.Run("Query unknown source", func(t *testing.T) {
		_, err := reg.Query(context.Background(), "nope", "believer", time.Second)
		assert.ErrorIs(t, err, shared.ErrUnknownSource)
	})

	t.Run("Ping without support", func(t *testing.T) {
		assert.ErrorIs(t, reg.Ping(context.Background(), "audiobox"), shared.ErrNotImplemented)
	})
}

func TestSelectSources(t *testing.T) {
	handles := []models.SourceHandle{
		{ID: "a", Tier: models.TierNormal},
		{ID: "b", Tier: models.TierPreferred},
		{ID: "c", Tier: models.TierNormal},
		{ID: "d", Tier: models.TierPreferred},
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"no limit", 0, []string{"b", "d", "a", "c"}},
		{"limit keeps preferred", 2, []string{"b", "d"}},
		{"limit above count", 10, []string{"b", "d", "a", "c"}},
		{"limit three", 3, []string{"b", "d", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(SelectSources(handles, tt.limit)))
		})
	}

	assert.Equal(t, "a", handles[0].ID, "input order is left alone")
}

func TestNewRegistryFromConfig(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		cfg := shared.DefaultConfig()
		cfg.Credentials.Spotify = shared.SpotifyConfig{}

		reg, err := NewRegistryFromConfig(cfg, shared.DiscardLogger())
		require.NoError(t, err)

		assert.NotContains(t, ids(reg.Handles()), "spotify", "spotify needs credentials")
		assert.Len(t, reg.Handles(), len(cfg.Sources)-1)
	})

	t.Run("headers file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "headers.txt")
		require.NoError(t, os.WriteFile(path, []byte(`curl 'http://x' -H 'X-Proxy-Key: secret'`), 0o600))

		cfg := shared.DefaultConfig()
		cfg.Sources = []shared.SourceConfig{{ID: "one", Kind: shared.SourceKindHTTP, BaseURL: "http://x", Tier: "preferred", HeadersPath: path}}

		reg, err := NewRegistryFromConfig(cfg, shared.DiscardLogger())
		require.NoError(t, err)

		src, ok := reg.clients["one"].(*HTTPSource)
		require.True(t, ok, "expected an HTTPSource, got %T", reg.clients["one"])
		require.NotNil(t, src.headers)
		assert.Equal(t, "secret", src.headers.Headers["X-Proxy-Key"])
		assert.Equal(t, models.TierPreferred, reg.Handles()[0].Tier)
	})

	t.Run("unknown kind", func(t *testing.T) {
		cfg := shared.DefaultConfig()
		cfg.Sources = []shared.SourceConfig{{ID: "x", Kind: "carrier-pigeon"}}

		_, err := NewRegistryFromConfig(cfg, shared.DiscardLogger())
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})
}
