package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)
	require.False(t, cfg.ApplicationConfiguration.Prometheus.Enabled)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
ApplicationConfiguration:
  LogLevel: debug
  Prometheus:
    Enabled: true
    Addresses:
      - ":2112"
`), 0o644))
	cfg, err = LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.ApplicationConfiguration.LogLevel)
	require.True(t, cfg.ApplicationConfiguration.Prometheus.Enabled)
	require.Equal(t, []string{":2112"}, cfg.ApplicationConfiguration.Prometheus.GetAddresses())
}
