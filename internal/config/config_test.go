package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, int64(32768), cfg.ReadLimit)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 32, cfg.SendBuffer)
	assert.True(t, cfg.NotifyPeerOnDisconnect)
	assert.False(t, cfg.RejectBusy)
	assert.Zero(t, cfg.CallTimeout)
}

func TestLoadFile_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	yaml := "port: 9090\nreject_busy: true\ncall_timeout: 30s\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("DIALTONE_MODE", "debug")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.RejectBusy)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
	assert.Equal(t, "debug", cfg.Mode)
}

func TestConfig_Validate(t *testing.T) {
	base := Config{Port: 8080, SendBuffer: 1, RateLimit: 10, RateInterval: time.Second}
	require.NoError(t, base.Validate())

	bad := base
	bad.Port = 0
	assert.Error(t, bad.Validate())

	bad = base
	bad.SendBuffer = 0
	assert.Error(t, bad.Validate())

	bad = base
	bad.RateInterval = 0
	assert.Error(t, bad.Validate())

	bad = base
	bad.CallTimeout = -time.Second
	assert.Error(t, bad.Validate())
}
