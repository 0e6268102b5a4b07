// Package config loads easydk-go's process configuration from a TOML
// file, falling back to defaults when no file is present — grounded on
// Tutu-Engine's internal/daemon/config.go.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/cambricon/easydk-go/internal/constants"
	"github.com/cambricon/easydk-go/internal/infersrv"
	"github.com/cambricon/easydk-go/internal/logging"
)

// Config holds everything needed to stand a process up: which device to
// bind, where models live, which sessions to pre-create, the admin HTTP
// surface, and logging.
type Config struct {
	Device   DeviceConfig             `toml:"device"`
	Models   ModelsConfig             `toml:"models"`
	Sessions map[string]SessionConfig `toml:"sessions"`
	Admin    AdminConfig              `toml:"admin"`
	Logging  LoggingConfig            `toml:"logging"`
}

// DeviceConfig selects the MLU device a process binds to.
type DeviceConfig struct {
	ID int `toml:"id"`
}

// ModelsConfig controls the model cache.
type ModelsConfig struct {
	Dir        string `toml:"dir"`
	CacheLimit int    `toml:"cache_limit"`
}

// SessionConfig describes one inference session to create at startup,
// keyed by name in Config.Sessions. It mirrors infersrv.Descriptor's
// tunables, minus the runtime-only Backend/ModelInfo/DeviceID fields
// that a config file cannot express on its own.
type SessionConfig struct {
	// ModelKey is a path/URL fetched through model.Loader (not a
	// content-addressed key — that is only known after the manifest
	// is loaded) identifying which model this session serves.
	ModelKey     string `toml:"model_key"`
	DeviceID     int    `toml:"device_id"`
	EngineNum    int    `toml:"engine_num"`
	BatchPolicy  string `toml:"batch_policy"` // "dynamic" (default) or "static"
	BatchDim     int    `toml:"batch_dim"`
	BatchTimeout string `toml:"batch_timeout"` // parsed with time.ParseDuration
}

// Policy resolves the configured batch policy name to an
// infersrv.BatchPolicy, defaulting to PolicyDynamic on an empty or
// unrecognised value.
func (s SessionConfig) Policy() infersrv.BatchPolicy {
	if s.BatchPolicy == "static" {
		return infersrv.PolicyStatic
	}
	return infersrv.PolicyDynamic
}

// Timeout resolves BatchTimeout, defaulting to
// constants.DefaultBatchTimeout when unset or unparsable.
func (s SessionConfig) Timeout() time.Duration {
	if s.BatchTimeout == "" {
		return constants.DefaultBatchTimeout
	}
	d, err := time.ParseDuration(s.BatchTimeout)
	if err != nil {
		return constants.DefaultBatchTimeout
	}
	return d
}

// AdminConfig controls the operator-facing HTTP surface (internal/adminhttp).
type AdminConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Enabled bool   `toml:"enabled"`
}

// Addr formats Host/Port as a net.Listen address.
func (a AdminConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// LoggingConfig controls the process-wide logger (internal/logging).
type LoggingConfig struct {
	Level   string `toml:"level"` // "debug", "info" (default), "warn", "error"
	Format  string `toml:"format"`
	File    string `toml:"file"`
	NoColor bool   `toml:"no_color"`
}

// ToLoggingConfig builds an internal/logging.Config from the TOML
// fields, opening File when set and falling back to os.Stderr on error.
func (l LoggingConfig) ToLoggingConfig() *logging.Config {
	cfg := logging.DefaultConfig()
	switch l.Level {
	case "debug":
		cfg.Level = logging.LevelDebug
	case "warn":
		cfg.Level = logging.LevelWarn
	case "error":
		cfg.Level = logging.LevelError
	default:
		cfg.Level = logging.LevelInfo
	}
	if l.Format != "" {
		cfg.Format = l.Format
	}
	cfg.NoColor = l.NoColor
	if l.File != "" {
		if f, err := os.OpenFile(l.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			cfg.Output = f
		}
	}
	return cfg
}

// DefaultConfig returns a sensible default configuration: device 0, the
// model cache under easydkHome()/models, sessions empty (none created
// until configured), the admin server on 127.0.0.1:9090, and info-level
// logging to stderr.
func DefaultConfig() Config {
	home := easydkHome()
	return Config{
		Device: DeviceConfig{ID: 0},
		Models: ModelsConfig{
			Dir:        filepath.Join(home, "models"),
			CacheLimit: constants.DefaultModelCacheLimit,
		},
		Sessions: map[string]SessionConfig{},
		Admin: AdminConfig{
			Host:    "127.0.0.1",
			Port:    9090,
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads cfg from path, falling back to DefaultConfig when the
// file does not exist. A present but malformed file is an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Models.CacheLimit <= 0 {
		cfg.Models.CacheLimit = constants.DefaultModelCacheLimit
	}

	return cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// easydkHome returns the directory easydk-go keeps its own state under,
// honouring EASYDK_HOME the way Tutu-Engine honours TUTU_HOME.
func easydkHome() string {
	if env := os.Getenv("EASYDK_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".easydk")
}

// EasydkHome is exported for use by other packages (e.g. cmd/easydk's
// default config path).
func EasydkHome() string {
	return easydkHome()
}
