package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7343"
	DefaultDBFileName = ".deaddrop.db"
	DefaultLogLevel   = "info"

	DefaultTTLSeconds           int64 = 86400
	DefaultMaxTTLSeconds        int64 = 30 * 86400
	DefaultBitsPerChannel             = 2
	DefaultMaxUploadBytes       int64 = 32 * 1024 * 1024
	DefaultBurnGraceSeconds           = 5
	DefaultSweepIntervalSeconds       = 60

	DefaultAttemptMaxFailures   = 10
	DefaultAttemptWindowSeconds = 300
	DefaultAttemptBlockSeconds  = 900

	configPathEnvKey  = "DEADDROP_CONFIG"
	dbPathEnvKey      = "DEADDROP_DB_PATH"
	dataDirEnvKey     = "DEADDROP_DATA_DIR"
	apiURLEnvKey      = "DEADDROP_API_URL"
	ttlEnvKey         = "DEADDROP_DEFAULT_TTL"
	maxUploadEnvKey   = "DEADDROP_MAX_UPLOAD_BYTES"
	configFileName    = ".deaddrop.toml"
)

// DropConfig defines drop policy defaults and limits.
type DropConfig struct {
	DefaultTTLSeconds     int64 `toml:"default_ttl_seconds"`
	MaxTTLSeconds         int64 `toml:"max_ttl_seconds"`
	DefaultBitsPerChannel int   `toml:"default_bits_per_channel"`
	MaxUploadBytes        int64 `toml:"max_upload_bytes"`
	BurnGraceSeconds      int   `toml:"burn_grace_seconds"`
	SweepIntervalSeconds  int   `toml:"sweep_interval_seconds"`
}

// AttemptLimiterConfig throttles repeated failed password attempts.
// Zeroing any field disables the limiter.
type AttemptLimiterConfig struct {
	MaxFailures   int `toml:"max_failures"`
	WindowSeconds int `toml:"window_seconds"`
	BlockSeconds  int `toml:"block_seconds"`
}

// Config defines runtime configuration for deaddrop.
type Config struct {
	APIURL   string               `toml:"api_url"`
	DBPath   string               `toml:"db_path"`
	DataDir  string               `toml:"data_dir"`
	LogLevel string               `toml:"log_level"`
	Drops    DropConfig           `toml:"drops"`
	Attempts AttemptLimiterConfig `toml:"attempts"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		LogLevel: DefaultLogLevel,
		Drops: DropConfig{
			DefaultTTLSeconds:     DefaultTTLSeconds,
			MaxTTLSeconds:         DefaultMaxTTLSeconds,
			DefaultBitsPerChannel: DefaultBitsPerChannel,
			MaxUploadBytes:        DefaultMaxUploadBytes,
			BurnGraceSeconds:      DefaultBurnGraceSeconds,
			SweepIntervalSeconds:  DefaultSweepIntervalSeconds,
		},
		Attempts: AttemptLimiterConfig{
			MaxFailures:   DefaultAttemptMaxFailures,
			WindowSeconds: DefaultAttemptWindowSeconds,
			BlockSeconds:  DefaultAttemptBlockSeconds,
		},
	}
}

// Load resolves configuration: defaults, then the config file (explicit
// DEADDROP_CONFIG path, else ~/.deaddrop.toml), then env overrides.
func Load() (*Config, error) {
	cfg := Default()

	path := strings.TrimSpace(os.Getenv(configPathEnvKey))
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		if _, err := loadFileIfExists(filepath.Join(home, configFileName), &cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath(cfg.DataDir)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Dir(cfg.DBPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks resolved values for internal consistency.
func (c *Config) Validate() error {
	if c.Drops.DefaultTTLSeconds <= 0 {
		return fmt.Errorf("default_ttl_seconds must be positive")
	}
	if c.Drops.MaxTTLSeconds < c.Drops.DefaultTTLSeconds {
		return fmt.Errorf("max_ttl_seconds must be >= default_ttl_seconds")
	}
	if c.Drops.DefaultBitsPerChannel < 1 || c.Drops.DefaultBitsPerChannel > 4 {
		return fmt.Errorf("default_bits_per_channel must be between 1 and 4")
	}
	if c.Drops.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	if c.Drops.BurnGraceSeconds < 0 || c.Drops.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("invalid sweep timing configuration")
	}
	return nil
}

// CarrierDir returns the directory that backs the carrier blob store.
func (c *Config) CarrierDir() string {
	return filepath.Join(c.DataDir, "carriers")
}

func loadFile(path string, cfg *Config) error {
	ok, err := loadFileIfExists(path, cfg)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("config file %s not found", path)
	}
	return nil
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("config path %s is a directory", path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(apiURLEnvKey)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(dbPathEnvKey)); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv(dataDirEnvKey)); v != "" {
		cfg.DataDir = v
	}
	if v, ok := envInt64(ttlEnvKey); ok {
		cfg.Drops.DefaultTTLSeconds = v
	}
	if v, ok := envInt64(maxUploadEnvKey); ok {
		cfg.Drops.MaxUploadBytes = v
	}
}

func envInt64(key string) (int64, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func defaultDBPath(dataDir string) string {
	if dataDir != "" {
		return filepath.Join(dataDir, DefaultDBFileName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".deaddrop", DefaultDBFileName)
	}
	return DefaultDBFileName
}
