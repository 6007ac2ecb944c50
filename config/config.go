package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Validation constants for configuration bounds checking.
const (
	// MinNodeTimeout is the minimum allowed node request timeout in milliseconds.
	MinNodeTimeout = 100
	// MaxNodeTimeout is the maximum allowed node request timeout in milliseconds (10 minutes).
	MaxNodeTimeout = 600000
	// MinRetryAttempts is the minimum allowed retry attempts.
	MinRetryAttempts = 1
	// MaxRetryAttempts is the maximum allowed retry attempts.
	MaxRetryAttempts = 100
	// MinPermissionTimeout is the minimum allowed consent prompt timeout in milliseconds.
	MinPermissionTimeout = 1000
	// MaxPermissionTimeout is the maximum allowed consent prompt timeout in milliseconds (10 minutes).
	MaxPermissionTimeout = 600000
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config is the process-wide bridge configuration.
type Config struct {
	NodeURL     string   `yaml:"node_url"`
	NodeAPIKey  string   `yaml:"node_api_key"`
	PublicNodes []string `yaml:"public_nodes"`
	// NodeTimeout is the per-request node timeout in milliseconds.
	NodeTimeout int `yaml:"node_timeout"`

	RetryAttempts int `yaml:"retry_attempts"`
	// RetryDelay is the fixed pause between attempts in milliseconds.
	RetryDelay int `yaml:"retry_delay"`

	// PermissionTimeout is how long a consent prompt waits before declining, in milliseconds.
	PermissionTimeout int `yaml:"permission_timeout"`
	// GroupKeyTTL is how long a resolved group key is reused, in milliseconds.
	GroupKeyTTL int `yaml:"group_key_ttl"`

	StoreBackend string `yaml:"store_backend"`
	StorePath    string `yaml:"store_path"`
	// VaultDir enables at-rest encryption of the file store when set.
	VaultDir string `yaml:"vault_dir"`

	ListenAddr     string   `yaml:"listen_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
//
// Default Value Rationale:
//   - NodeURL: the local core API port; a public gateway must be chosen explicitly
//   - RetryAttempts/RetryDelay: 3 attempts 10 s apart, the chain client's fixed policy
//   - PermissionTimeout: 60 s, after which an unanswered prompt counts as declined
//   - GroupKeyTTL: 20 min before a group key is re-resolved from chain
func Default() *Config {
	return &Config{
		NodeURL:           "http://127.0.0.1:12391",
		PublicNodes:       []string{"https://ext-node.qortal.link", "https://appnode.qortal.org"},
		NodeTimeout:       30000,
		RetryAttempts:     3,
		RetryDelay:        10000,
		PermissionTimeout: 60000,
		GroupKeyTTL:       int((20 * time.Minute) / time.Millisecond),
		StoreBackend:      StoreFile,
		StorePath:         "qbridge-store.json",
		ListenAddr:        "127.0.0.1:12392",
		LogLevel:          "info",
	}
}

// Load builds a configuration from defaults, an optional YAML file and QBRIDGE_*
// environment overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}
	ApplyEnvironmentOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logConfigurationInfo(cfg)
	return cfg, nil
}

// Validate rejects configurations the bridge cannot run with.
func (c *Config) Validate() error {
	if c.NodeURL == "" {
		return fmt.Errorf("node_url is required")
	}
	if c.NodeTimeout < MinNodeTimeout || c.NodeTimeout > MaxNodeTimeout {
		return fmt.Errorf("node_timeout %d out of range [%d, %d]", c.NodeTimeout, MinNodeTimeout, MaxNodeTimeout)
	}
	if c.RetryAttempts < MinRetryAttempts || c.RetryAttempts > MaxRetryAttempts {
		return fmt.Errorf("retry_attempts %d out of range [%d, %d]", c.RetryAttempts, MinRetryAttempts, MaxRetryAttempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative")
	}
	if c.PermissionTimeout < MinPermissionTimeout || c.PermissionTimeout > MaxPermissionTimeout {
		return fmt.Errorf("permission_timeout %d out of range [%d, %d]", c.PermissionTimeout, MinPermissionTimeout, MaxPermissionTimeout)
	}
	if c.GroupKeyTTL <= 0 {
		return fmt.Errorf("group_key_ttl must be positive")
	}
	switch c.StoreBackend {
	case StoreMemory:
	case StoreFile, StoreSQLite:
		if c.StorePath == "" {
			return fmt.Errorf("store_path is required for the %s backend", c.StoreBackend)
		}
	default:
		return fmt.Errorf("unknown store_backend %q", c.StoreBackend)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// NodeTimeoutDuration returns NodeTimeout as a time.Duration.
func (c *Config) NodeTimeoutDuration() time.Duration {
	return time.Duration(c.NodeTimeout) * time.Millisecond
}

// RetryDelayDuration returns RetryDelay as a time.Duration.
func (c *Config) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay) * time.Millisecond
}

// PermissionTimeoutDuration returns PermissionTimeout as a time.Duration.
func (c *Config) PermissionTimeoutDuration() time.Duration {
	return time.Duration(c.PermissionTimeout) * time.Millisecond
}

// GroupKeyTTLDuration returns GroupKeyTTL as a time.Duration.
func (c *Config) GroupKeyTTLDuration() time.Duration {
	return time.Duration(c.GroupKeyTTL) * time.Millisecond
}

// ApplyEnvironmentOverrides updates configuration based on environment variables.
// It checks for QBRIDGE_* environment variables and overrides values if valid ones are found.
func ApplyEnvironmentOverrides(config *Config) {
	parseStringSetting("QBRIDGE_NODE_URL", &config.NodeURL)
	parseStringSetting("QBRIDGE_NODE_API_KEY", &config.NodeAPIKey)
	parseListSetting("QBRIDGE_PUBLIC_NODES", &config.PublicNodes)
	parseIntSetting("QBRIDGE_NODE_TIMEOUT", &config.NodeTimeout, MinNodeTimeout, MaxNodeTimeout)
	parseIntSetting("QBRIDGE_RETRY_ATTEMPTS", &config.RetryAttempts, MinRetryAttempts, MaxRetryAttempts)
	parseIntSetting("QBRIDGE_RETRY_DELAY", &config.RetryDelay, 0, MaxNodeTimeout)
	parseIntSetting("QBRIDGE_PERMISSION_TIMEOUT", &config.PermissionTimeout, MinPermissionTimeout, MaxPermissionTimeout)
	parseStringSetting("QBRIDGE_STORE_BACKEND", &config.StoreBackend)
	parseStringSetting("QBRIDGE_STORE_PATH", &config.StorePath)
	parseStringSetting("QBRIDGE_VAULT_DIR", &config.VaultDir)
	parseStringSetting("QBRIDGE_LISTEN_ADDR", &config.ListenAddr)
	parseListSetting("QBRIDGE_ALLOWED_ORIGINS", &config.AllowedOrigins)
	parseLogLevelSetting(config)
}

func parseStringSetting(envVar string, target *string) {
	if v := os.Getenv(envVar); v != "" {
		*target = v
	}
}

// parseListSetting reads a comma-separated list, ignoring empty elements.
func parseListSetting(envVar string, target *[]string) {
	v := os.Getenv(envVar)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*target = out
}

// parseIntSetting validates the value is within bounds [min, max] and logs warnings for
// invalid values. Only updates target if parsing succeeds and value is within valid range.
func parseIntSetting(envVar string, target *int, min, max int) {
	raw := os.Getenv(envVar)
	if raw == "" {
		return
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseIntSetting",
			"env_var":     envVar,
			"value":       raw,
			"error":       err.Error(),
			"using_value": *target,
		}).Warn("Failed to parse environment variable, using default")
		return
	}
	if value < min || value > max {
		logrus.WithFields(logrus.Fields{
			"function":    "parseIntSetting",
			"env_var":     envVar,
			"value":       value,
			"min":         min,
			"max":         max,
			"using_value": *target,
		}).Warn("Environment variable value out of bounds, using default")
		return
	}
	*target = value
}

func parseLogLevelSetting(config *Config) {
	raw := os.Getenv("QBRIDGE_LOG_LEVEL")
	if raw == "" {
		return
	}
	if _, err := logrus.ParseLevel(raw); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseLogLevelSetting",
			"env_var":     "QBRIDGE_LOG_LEVEL",
			"value":       raw,
			"error":       err.Error(),
			"using_value": config.LogLevel,
		}).Warn("Failed to parse QBRIDGE_LOG_LEVEL environment variable, using default")
		return
	}
	config.LogLevel = raw
}

// logConfigurationInfo logs the final configuration settings for debugging purposes.
func logConfigurationInfo(config *Config) {
	logrus.WithFields(logrus.Fields{
		"function":           "Load",
		"node_url":           config.NodeURL,
		"node_timeout":       config.NodeTimeout,
		"retry_attempts":     config.RetryAttempts,
		"retry_delay":        config.RetryDelay,
		"permission_timeout": config.PermissionTimeout,
		"store_backend":      config.StoreBackend,
		"vault":              config.VaultDir != "",
	}).Info("Loaded bridge configuration")
}
