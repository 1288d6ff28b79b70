package logger

import "go.uber.org/zap/zapcore"

// CLI verbosity is the count of -v flags.
const (
	VerbosityUser  = 0 // results and errors only
	VerbosityInfo  = 1 // + startup and request summaries
	VerbosityDebug = 2 // + pipeline stages and timing
)

var verbosityLevels = [...]struct {
	level zapcore.Level
	name  string
}{
	VerbosityUser:  {zapcore.WarnLevel, "User"},
	VerbosityInfo:  {zapcore.InfoLevel, "Info (-v)"},
	VerbosityDebug: {zapcore.DebugLevel, "Debug (-vv)"},
}

// VerbosityToLevel maps a -v count to a zap level; counts above -vv stay at
// debug.
func VerbosityToLevel(verbosity int) zapcore.Level {
	return verbosityLevels[clampVerbosity(verbosity)].level
}

// LevelName labels a -v count for the startup banner.
func LevelName(verbosity int) string {
	if verbosity > VerbosityDebug {
		return "Debug (-vv+)"
	}
	if verbosity < VerbosityUser {
		return "Unknown"
	}
	return verbosityLevels[verbosity].name
}

func clampVerbosity(v int) int {
	if v < VerbosityUser {
		return VerbosityUser
	}
	if v > VerbosityDebug {
		return VerbosityDebug
	}
	return v
}
