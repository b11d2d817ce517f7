package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/transit-alert-push/internal/config"
)

func TestInitRouteMap_InlineTags(t *testing.T) {
	cfg := &config.Config{}
	cfg.Routes.Tags = map[string]string{"931_": "MBTA Line Red"}

	m, err := initRouteMap(cfg)
	require.NoError(t, err)

	tag, ok := m.Lookup("931_")
	assert.True(t, ok)
	assert.Equal(t, "MBTA Line Red", tag)
}

func TestInitRouteMap_FileWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("routes:\n  Blue: MBTA Line Blue\n"), 0o644))

	cfg := &config.Config{}
	cfg.Routes.File = path
	cfg.Routes.Tags = map[string]string{"931_": "MBTA Line Red"}

	m, err := initRouteMap(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	_, ok := m.Lookup("931_")
	assert.False(t, ok)
}

func TestInitRouteMap_Empty(t *testing.T) {
	_, err := initRouteMap(&config.Config{})
	assert.Error(t, err)
}

func TestNewAuditLogger_File(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging.AuditFile = filepath.Join(t.TempDir(), "logs", "sent.log")

	audit, closer, err := newAuditLogger(cfg, newLogger(cfg))
	require.NoError(t, err)
	require.NotNil(t, closer)

	audit.Info("push sent", "alert_id", "113")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(cfg.Logging.AuditFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"alert_id":"113"`)
}

func TestNewAuditLogger_SharedWithoutFile(t *testing.T) {
	cfg := &config.Config{}

	audit, closer, err := newAuditLogger(cfg, newLogger(cfg))
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.NotNil(t, audit)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "INFO", parseLevel("bogus").String())
}
