package logger

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global logger instance
	Logger *zap.SugaredLogger
	// Flag to track if JSON output is enabled
	JSONOutput bool
)

func init() {
	// Initialize with a safe no-op logger at package load time
	// This prevents nil pointer panics if logger is used before Initialize() is called
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger. Verbosity is the CLI flag count
// (see VerbosityToLevel).
func Initialize(jsonOutput bool, verbosity int) error {
	l, err := New(jsonOutput, VerbosityToLevel(verbosity))
	if err != nil {
		return err
	}
	JSONOutput = jsonOutput
	Logger = l.Named("meridian_ml")
	return nil
}

// InitializeFromEnvironment sets up the global logger for container
// deployments: JSON at info level when running in production, console
// output otherwise. LOG_LEVEL overrides the level in both cases.
func InitializeFromEnvironment() error {
	json := isProductionEnvironment()
	level := zapcore.InfoLevel
	if lvl, ok := parseLevel(os.Getenv("LOG_LEVEL")); ok {
		level = lvl
	}

	l, err := New(json, level)
	if err != nil {
		return err
	}
	JSONOutput = json
	Logger = l.Named("meridian_ml")

	Logger.Debugw("Logger initialized",
		"environment", getEnvironmentType(),
		"log_level", level.String(),
		"json", json)
	return nil
}

// New builds a standalone logger for injection into components.
//
// JSON records carry timestamp (ISO-8601 UTC), level, message, logger and
// caller keys, with a stacktrace on errors.
func New(jsonOutput bool, level zapcore.Level) (*zap.SugaredLogger, error) {
	return build(jsonOutput, level, "stdout", os.Stdout)
}

// NewStderr is New writing to stderr, for commands whose stdout is a
// protocol stream (mcp).
func NewStderr(jsonOutput bool, level zapcore.Level) (*zap.SugaredLogger, error) {
	return build(jsonOutput, level, "stderr", os.Stderr)
}

func build(jsonOutput bool, level zapcore.Level, path string, out *os.File) (*zap.SugaredLogger, error) {
	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		config.OutputPaths = []string{path}
		config.ErrorOutputPaths = []string{"stderr"}
		config.EncoderConfig = jsonEncoderConfig()
		zapLogger, err := config.Build()
		if err != nil {
			return nil, err
		}
		return zapLogger.Sugar(), nil
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zapLogger := zap.New(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(out),
			level,
		),
		zap.AddCaller(),
	)
	return zapLogger.Sugar(), nil
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.LevelKey = "level"
	cfg.MessageKey = "message"
	cfg.NameKey = "logger"
	cfg.CallerKey = "caller"
	cfg.StacktraceKey = "stacktrace"
	cfg.EncodeTime = utcISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return cfg
}

func utcISO8601TimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format("2006-01-02T15:04:05.000000Z07:00"))
}

func parseLevel(s string) (zapcore.Level, bool) {
	if s == "" {
		return zapcore.InfoLevel, false
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return zapcore.InfoLevel, false
	}
	return lvl, true
}

// ParseLevel converts a configured level name ("debug", "info", ...) to a
// zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	lvl, _ := parseLevel(s)
	return lvl
}

// isProductionEnvironment reports whether the service runs in a deployed
// environment.
func isProductionEnvironment() bool {
	if env := strings.ToLower(os.Getenv("ENVIRONMENT")); env == "production" || env == "prod" {
		return true
	}
	// Container platforms set this for every deployed revision
	if os.Getenv("K_SERVICE") != "" {
		return true
	}
	return false
}

// getEnvironmentType returns a string description of the environment
func getEnvironmentType() string {
	if isProductionEnvironment() {
		return "production"
	}
	return "development"
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if Logger != nil {
		Logger.Sync()
	}
}

// Infow logs an info message with structured fields
func Infow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, keysAndValues...)
	}
}

// Errorw logs an error message with structured fields
func Errorw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Errorw(msg, keysAndValues...)
	}
}

// Warnw logs a warning message with structured fields
func Warnw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Warnw(msg, keysAndValues...)
	}
}

// Debugw logs a debug message with structured fields
func Debugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, keysAndValues...)
	}
}
