// Package config defines the tiermem configuration surface: YAML files,
// environment overrides and fail-fast validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Configuration represents the complete engine configuration.
type Configuration struct {
	Cache    CacheConfig   `yaml:"cache"`
	WeakRefs WeakRefConfig `yaml:"weak_refs"`
	Monitor  MonitorConfig `yaml:"monitor"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Logging  LoggingConfig `yaml:"logging"`
}

// CacheConfig represents tier capacities and migration thresholds.
type CacheConfig struct {
	L1Capacity         int           `yaml:"l1_capacity"`
	L2Capacity         int           `yaml:"l2_capacity"`
	L3Capacity         int           `yaml:"l3_capacity"`
	PromotionThreshold int           `yaml:"promotion_threshold"`
	PromotionWindow    time.Duration `yaml:"promotion_window"`
	DemotionThreshold  time.Duration `yaml:"demotion_threshold"`
	CleanupInterval    time.Duration `yaml:"cleanup_interval"`

	// CleanupStrategy caps how aggressive monitor-triggered cleanup may
	// get: conservative, moderate or aggressive.
	CleanupStrategy string `yaml:"cleanup_strategy"`
}

// WeakRefConfig represents weak-reference settings.
type WeakRefConfig struct {
	Enabled bool `yaml:"enabled"`
	MaxRefs int  `yaml:"max_refs"`
}

// MonitorConfig represents memory-pressure monitoring settings.
type MonitorConfig struct {
	Interval          time.Duration `yaml:"interval"`
	WarningThreshold  int64         `yaml:"warning_threshold"`
	CriticalThreshold int64         `yaml:"critical_threshold"`
}

// MetricsConfig represents the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NewDefault returns a configuration with sensible defaults.
func NewDefault() *Configuration {
	return &Configuration{
		Cache: CacheConfig{
			L1Capacity:         15,
			L2Capacity:         30,
			L3Capacity:         60,
			PromotionThreshold: 2,
			PromotionWindow:    10 * time.Second,
			DemotionThreshold:  30 * time.Second,
			CleanupInterval:    2 * time.Minute,
			CleanupStrategy:    "aggressive",
		},
		WeakRefs: WeakRefConfig{
			Enabled: true,
			MaxRefs: 500,
		},
		Monitor: MonitorConfig{
			Interval:          time.Minute,
			WarningThreshold:  10 * 1024 * 1024,
			CriticalThreshold: 20 * 1024 * 1024,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Port:      9144,
			Path:      "/metrics",
			Namespace: "tiermem",
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a YAML file.
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv applies TIERMEM_* environment overrides.
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("TIERMEM_L1_CAPACITY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Cache.L1Capacity = n
		}
	}
	if val := os.Getenv("TIERMEM_L2_CAPACITY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Cache.L2Capacity = n
		}
	}
	if val := os.Getenv("TIERMEM_L3_CAPACITY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Cache.L3Capacity = n
		}
	}
	if val := os.Getenv("TIERMEM_PROMOTION_THRESHOLD"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Cache.PromotionThreshold = n
		}
	}
	if val := os.Getenv("TIERMEM_DEMOTION_THRESHOLD"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Cache.DemotionThreshold = d
		}
	}
	if val := os.Getenv("TIERMEM_CLEANUP_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Cache.CleanupInterval = d
		}
	}
	if val := os.Getenv("TIERMEM_CLEANUP_STRATEGY"); val != "" {
		c.Cache.CleanupStrategy = val
	}
	if val := os.Getenv("TIERMEM_MONITOR_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Monitor.Interval = d
		}
	}
	if val := os.Getenv("TIERMEM_WARNING_THRESHOLD"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Monitor.WarningThreshold = n
		}
	}
	if val := os.Getenv("TIERMEM_CRITICAL_THRESHOLD"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Monitor.CriticalThreshold = n
		}
	}
	if val := os.Getenv("TIERMEM_METRICS_ENABLED"); val != "" {
		c.Metrics.Enabled = val == "true" || val == "1"
	}
	if val := os.Getenv("TIERMEM_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Metrics.Port = port
		}
	}
	if val := os.Getenv("TIERMEM_LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects configurations that would otherwise be silently clamped
// at runtime.
func (c *Configuration) Validate() error {
	if c.Cache.L1Capacity <= 0 || c.Cache.L2Capacity <= 0 || c.Cache.L3Capacity <= 0 {
		return fmt.Errorf("tier capacities must be positive (got l1=%d l2=%d l3=%d)",
			c.Cache.L1Capacity, c.Cache.L2Capacity, c.Cache.L3Capacity)
	}
	if c.Cache.PromotionThreshold <= 0 {
		return fmt.Errorf("promotion_threshold must be positive (got %d)", c.Cache.PromotionThreshold)
	}
	if c.Cache.PromotionWindow <= 0 {
		return fmt.Errorf("promotion_window must be positive (got %v)", c.Cache.PromotionWindow)
	}
	if c.Cache.DemotionThreshold <= 0 {
		return fmt.Errorf("demotion_threshold must be positive (got %v)", c.Cache.DemotionThreshold)
	}
	if c.Cache.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup_interval must be positive (got %v)", c.Cache.CleanupInterval)
	}
	switch c.Cache.CleanupStrategy {
	case "conservative", "moderate", "aggressive":
	default:
		return fmt.Errorf("invalid cleanup_strategy: %q (must be one of: conservative, moderate, aggressive)",
			c.Cache.CleanupStrategy)
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor interval must be positive (got %v)", c.Monitor.Interval)
	}
	if c.Monitor.WarningThreshold <= 0 || c.Monitor.CriticalThreshold <= 0 {
		return fmt.Errorf("memory thresholds must be positive (got warning=%d critical=%d)",
			c.Monitor.WarningThreshold, c.Monitor.CriticalThreshold)
	}
	if c.Monitor.WarningThreshold >= c.Monitor.CriticalThreshold {
		return fmt.Errorf("warning_threshold %d must be below critical_threshold %d",
			c.Monitor.WarningThreshold, c.Monitor.CriticalThreshold)
	}
	if c.WeakRefs.MaxRefs < 0 {
		return fmt.Errorf("max_refs must not be negative (got %d)", c.WeakRefs.MaxRefs)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
	}
	return nil
}
