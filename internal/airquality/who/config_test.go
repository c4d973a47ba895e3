package who_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/whoair/internal/airquality/who"
	"github.com/breatheroute/whoair/internal/resilience"
)

func TestSourceConfigFromEnv(t *testing.T) {
	t.Setenv("DATA_SOURCE", "")
	t.Setenv("DATA_FILE", "")
	t.Setenv("DATA_URL", "")
	t.Setenv("DATA_SHEET", "")

	cfg := who.SourceConfigFromEnv()
	assert.Equal(t, who.KindFile, cfg.Kind)
	assert.NotEmpty(t, cfg.Path)

	t.Setenv("DATA_SOURCE", "http")
	t.Setenv("DATA_URL", "https://example.org/who.xlsx")
	t.Setenv("DATA_SHEET", "Update 2022 (V5.0)")

	cfg = who.SourceConfigFromEnv()
	assert.Equal(t, who.KindHTTP, cfg.Kind)
	assert.Equal(t, "https://example.org/who.xlsx", cfg.URL)
	assert.Equal(t, "Update 2022 (V5.0)", cfg.Sheet)
}

func TestNewSource(t *testing.T) {
	registry := resilience.NewRegistry()

	src, err := who.NewSource(who.SourceConfig{Kind: who.KindFile, Path: "x.xlsx"}, registry, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "file", src.Name())
	assert.Equal(t, 0, registry.Len())

	src, err = who.NewSource(who.SourceConfig{Kind: who.KindHTTP, URL: "https://example.org/who.xlsx"}, registry, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "http", src.Name())
	assert.Equal(t, 1, registry.Len())

	_, err = who.NewSource(who.SourceConfig{Kind: who.KindHTTP}, registry, zerolog.Nop())
	assert.Error(t, err)

	_, err = who.NewSource(who.SourceConfig{Kind: "ftp"}, registry, zerolog.Nop())
	assert.ErrorIs(t, err, who.ErrUnknownSource)
}
