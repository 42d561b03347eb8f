// Package logging provides config-driven categorized file-based logging for mangaba.
// Logs are written to <home>/logs/ with a separate rotated file per category.
// Logging is controlled by logging.debug_mode in mangaba.yaml - when false, no logs are written.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Boot/initialization
	CategoryConfig   Category = "config"   // Config loading and provider document writes
	CategoryProvider Category = "provider" // Backend HTTP calls and classification
	CategoryRegistry Category = "registry" // Provider resolution
	CategoryContext  Category = "context"  // Context store persistence
	CategoryGateway  Category = "gateway"  // Task orchestration, health probes
	CategoryCLI      Category = "cli"      // Command dispatch
)

// Options mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type Options struct {
	DebugMode  bool
	Level      string
	JSONFormat bool
	Categories map[string]bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger wraps a zap sugared logger bound to one category file
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	sink     *lumberjack.Logger
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	options   Options
	optionsMu sync.RWMutex
	level     = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Initialize sets up the logging directory.
// Should be called once at startup; calling it again replaces the previous setup.
func Initialize(dir string, opts Options) error {
	if dir == "" {
		return fmt.Errorf("logs directory required")
	}

	CloseAll()

	optionsMu.Lock()
	options = opts
	logsDir = dir
	level.SetLevel(parseLevel(opts.Level))
	optionsMu.Unlock()

	if !opts.DebugMode {
		return nil // Silent no-op in production mode
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== mangaba logging initialized ===")
	boot.Info("Logs directory: %s", dir)
	boot.Info("Log level: %s", level.Level())
	if len(opts.Categories) == 0 {
		boot.Info("All categories enabled (no category filter)")
	}
	return nil
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	optionsMu.RLock()
	defer optionsMu.RUnlock()
	return options.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	optionsMu.RLock()
	defer optionsMu.RUnlock()

	if !options.DebugMode {
		return false
	}
	enabled, exists := options.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	optionsMu.RLock()
	opts := options
	dir := logsDir
	optionsMu.RUnlock()

	sink := newSink(filepath.Join(dir, string(category)+".log"), opts)
	core := zapcore.NewCore(newEncoder(opts.JSONFormat), zapcore.AddSync(sink), level)
	l := &Logger{
		category: category,
		sugar:    zap.New(core).Named(string(category)).Sugar(),
		sink:     sink,
	}
	loggers[category] = l
	return l
}

func newSink(path string, opts Options) *lumberjack.Logger {
	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}
}

func newEncoder(jsonFormat bool) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if jsonFormat {
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
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

// With returns a child logger carrying structured key-value context
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...), sink: l.sink}
}

// CloseAll flushes and closes all category log files
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.sugar != nil {
			_ = l.sugar.Sync()
		}
		if l.sink != nil {
			_ = l.sink.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

func BootWarn(format string, args ...interface{}) {
	Get(CategoryBoot).Warn(format, args...)
}

func Config(format string, args ...interface{}) {
	Get(CategoryConfig).Info(format, args...)
}

func ConfigDebug(format string, args ...interface{}) {
	Get(CategoryConfig).Debug(format, args...)
}

func ConfigWarn(format string, args ...interface{}) {
	Get(CategoryConfig).Warn(format, args...)
}

// Provider logs to the provider category
func Provider(format string, args ...interface{}) {
	Get(CategoryProvider).Info(format, args...)
}

func ProviderDebug(format string, args ...interface{}) {
	Get(CategoryProvider).Debug(format, args...)
}

func ProviderWarn(format string, args ...interface{}) {
	Get(CategoryProvider).Warn(format, args...)
}

func ProviderError(format string, args ...interface{}) {
	Get(CategoryProvider).Error(format, args...)
}

func Registry(format string, args ...interface{}) {
	Get(CategoryRegistry).Info(format, args...)
}

func RegistryDebug(format string, args ...interface{}) {
	Get(CategoryRegistry).Debug(format, args...)
}

// Context logs to the context store category
func Context(format string, args ...interface{}) {
	Get(CategoryContext).Info(format, args...)
}

func ContextDebug(format string, args ...interface{}) {
	Get(CategoryContext).Debug(format, args...)
}

func ContextWarn(format string, args ...interface{}) {
	Get(CategoryContext).Warn(format, args...)
}

func ContextError(format string, args ...interface{}) {
	Get(CategoryContext).Error(format, args...)
}

func Gateway(format string, args ...interface{}) {
	Get(CategoryGateway).Info(format, args...)
}

func GatewayDebug(format string, args ...interface{}) {
	Get(CategoryGateway).Debug(format, args...)
}

func GatewayWarn(format string, args ...interface{}) {
	Get(CategoryGateway).Warn(format, args...)
}

func CLIDebug(format string, args ...interface{}) {
	Get(CategoryCLI).Debug(format, args...)
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer measures one operation and logs its duration to a category.
type Timer struct {
	category  Category
	operation string
	start     time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, operation: operation, start: time.Now()}
}

// Stop logs the elapsed time at debug level.
func (t *Timer) Stop() time.Duration {
	return t.StopWithThreshold(0)
}

// StopWithThreshold logs at warn level when the operation ran longer than
// threshold. A zero threshold never warns.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if threshold > 0 && elapsed > threshold {
		Get(t.category).Warn("%s slow: %v (threshold %v)", t.operation, elapsed, threshold)
		return elapsed
	}
	Get(t.category).Debug("%s done in %v", t.operation, elapsed)
	return elapsed
}
