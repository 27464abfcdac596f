package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoggingConfig configures the file logger. It is not persisted in the
// inventory; it comes from flags and the ARCHON_DEBUG / ARCHON_LOG_LEVEL
// environment variables.
type LoggingConfig struct {
	Dir        string          // directory holding <date>_<category>.log files
	Level      string          // debug, info, warn, error
	DebugMode  bool            // master toggle - false = no log files
	Categories map[string]bool // per-category toggles, nil = all enabled
}

// LoggingFromEnv builds a LoggingConfig next to the inventory at configPath.
func LoggingFromEnv(configPath string) LoggingConfig {
	cfg := LoggingConfig{
		Dir:   filepath.Join(filepath.Dir(configPath), "logs"),
		Level: "info",
	}
	if v := os.Getenv("ARCHON_DEBUG"); v != "" {
		cfg.DebugMode, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("ARCHON_LOG_LEVEL"); v != "" {
		cfg.Level = strings.ToLower(v)
	}
	return cfg
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Returns false if debug mode is off.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}
