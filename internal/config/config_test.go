package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cambricon/easydk-go/internal/infersrv"
	"github.com/cambricon/easydk-go/internal/logging"
)

func TestLoadConfigFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigParsesSessionsAndAdmin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	const body = `
[device]
id = 1

[admin]
host = "0.0.0.0"
port = 8080
enabled = true

[sessions.detector]
model_key = "yolo"
engine_num = 2
batch_policy = "static"
batch_dim = 4
batch_timeout = "50ms"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Device.ID)
	assert.Equal(t, "0.0.0.0:8080", cfg.Admin.Addr())

	sess, ok := cfg.Sessions["detector"]
	require.True(t, ok)
	assert.Equal(t, "yolo", sess.ModelKey)
	assert.Equal(t, infersrv.PolicyStatic, sess.Policy())
	assert.Equal(t, 50*time.Millisecond, sess.Timeout())
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not valid toml [["), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSessionConfigDefaultsToDynamicPolicyAndTimeout(t *testing.T) {
	var sess SessionConfig
	assert.Equal(t, infersrv.PolicyDynamic, sess.Policy())
	assert.Equal(t, 200*time.Millisecond, sess.Timeout())
}

func TestSaveConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.Admin.Port = 9999

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, loaded.Admin.Port)
}

func TestLoggingConfigToLoggingConfigMapsLevels(t *testing.T) {
	lc := LoggingConfig{Level: "debug", Format: "json"}
	out := lc.ToLoggingConfig()
	assert.Equal(t, logging.LevelDebug, out.Level)
	assert.Equal(t, "json", out.Format)
}
