// Package logging provides categorized file-based logging for archon.
// The terminal belongs to the console UI, so logs are written to
// <dir>/<date>_<category>.log with one file per category.
// Nothing is written unless debug mode is enabled.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"archon/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, flags, inventory load
	CategoryUpdate  Category = "update"  // Action dispatch and state transitions
	CategorySpawner Category = "spawner" // Background operation lifecycle
	CategoryAPI     Category = "api"     // Node agent HTTP calls
	CategoryDNS     Category = "dns"     // DNS provider calls
	CategoryStore   Category = "store"   // Inventory persistence
	CategoryWatch   Category = "watch"   // Inventory file watcher
	CategoryUI      Category = "ui"      // Rendering and input mapping
)

// Logger is a category logger. The zero value (nil sugar) discards everything.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	cfg     config.LoggingConfig
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	loggers = make(map[Category]*Logger)
	files   []*os.File
)

// Initialize sets up the log directory. Must be called once at startup.
// With debug mode off it only records the config and every logger is a no-op.
func Initialize(c config.LoggingConfig) error {
	mu.Lock()
	defer mu.Unlock()

	cfg = c
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	if !cfg.DebugMode {
		return nil
	}
	if cfg.Dir == "" {
		return fmt.Errorf("log directory required")
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	return nil
}

// IsDebugMode returns whether file logging is enabled.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return cfg.DebugMode
}

// SetLevel changes the level of every category logger.
func SetLevel(l zapcore.Level) {
	level.SetLevel(l)
}

// Get returns (or creates) the logger for a category.
// Returns a no-op logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	enabled := cfg.IsCategoryEnabled(string(category))
	dir := cfg.Dir
	mu.RUnlock()

	if !enabled || dir == "" {
		return &Logger{category: category}
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}
	files = append(files, file)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(file), level)
	l := &Logger{
		category: category,
		sugar:    zap.New(core).Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// With returns a logger that attaches key/value pairs to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// CloseAll flushes and closes all open log files (call at shutdown).
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()

	for _, l := range loggers {
		if l.sugar != nil {
			_ = l.sugar.Sync()
		}
	}
	for _, f := range files {
		_ = f.Close()
	}
	files = nil
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootWarn logs a warning to the boot category
func BootWarn(format string, args ...interface{}) {
	Get(CategoryBoot).Warn(format, args...)
}

// Update logs to the update category
func Update(format string, args ...interface{}) {
	Get(CategoryUpdate).Info(format, args...)
}

// UpdateDebug logs debug to the update category
func UpdateDebug(format string, args ...interface{}) {
	Get(CategoryUpdate).Debug(format, args...)
}

// Spawner logs to the spawner category
func Spawner(format string, args ...interface{}) {
	Get(CategorySpawner).Info(format, args...)
}

// SpawnerDebug logs debug to the spawner category
func SpawnerDebug(format string, args ...interface{}) {
	Get(CategorySpawner).Debug(format, args...)
}

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}

// DNSDebug logs debug to the dns category
func DNSDebug(format string, args ...interface{}) {
	Get(CategoryDNS).Debug(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreError logs an error to the store category
func StoreError(format string, args ...interface{}) {
	Get(CategoryStore).Error(format, args...)
}

// Watch logs to the watch category
func Watch(format string, args ...interface{}) {
	Get(CategoryWatch).Info(format, args...)
}
