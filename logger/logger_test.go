package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		verbosity  int
	}{
		{name: "JSON output mode", jsonOutput: true, verbosity: 1},
		{name: "Console output mode", jsonOutput: false, verbosity: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			err := Initialize(tt.jsonOutput, tt.verbosity)
			if err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			if Logger == nil {
				t.Error("Initialize() did not set global Logger")
			}
			if JSONOutput != tt.jsonOutput {
				t.Errorf("Initialize() JSONOutput = %v, want %v", JSONOutput, tt.jsonOutput)
			}

			Logger = zap.NewNop().Sugar()
		})
	}
}

func TestJSONEncoderKeys(t *testing.T) {
	var buf bytes.Buffer
	core := zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig()), zapcore.AddSync(&buf), zap.InfoLevel)
	l := zap.New(core, zap.AddCaller()).Named("meridian_ml").Sugar()

	l.Infow("clustering request", FieldVectors, 12)
	require.NoError(t, l.Sync())

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "info", record["level"])
	assert.Equal(t, "clustering request", record["message"])
	assert.Equal(t, "meridian_ml", record["logger"])
	assert.Contains(t, record, "timestamp")
	assert.Contains(t, record, "caller")
	assert.EqualValues(t, 12, record[FieldVectors])
	assert.Regexp(t, `Z$`, record["timestamp"])
}

func TestIsProductionEnvironment(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{"nothing set", map[string]string{}, false},
		{"ENVIRONMENT=production", map[string]string{"ENVIRONMENT": "production"}, true},
		{"ENVIRONMENT=prod", map[string]string{"ENVIRONMENT": "PROD"}, true},
		{"ENVIRONMENT=dev", map[string]string{"ENVIRONMENT": "dev"}, false},
		{"K_SERVICE set", map[string]string{"K_SERVICE": "meridian-ml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "")
			t.Setenv("K_SERVICE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := isProductionEnvironment(); got != tt.want {
				t.Errorf("isProductionEnvironment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInitializeFromEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "WARN")
	defer func() { Logger = zap.NewNop().Sugar() }()

	require.NoError(t, InitializeFromEnvironment())
	assert.True(t, JSONOutput)
	assert.False(t, Logger.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Logger.Desugar().Core().Enabled(zapcore.WarnLevel))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("ERROR"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("chatty"))
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(0))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(1))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(2))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(5))
	assert.Equal(t, "Debug (-vv)", LevelName(2))
}

func TestFieldsFromContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithComponent(ctx, "server")

	fields := FieldsFromContext(ctx)
	assert.Equal(t, []interface{}{FieldRequestID, "req-1", FieldComponent, "server"}, fields)
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestLoggerFromContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Logger = zap.New(core).Sugar()
	defer func() { Logger = zap.NewNop().Sugar() }()

	LoggerFromContext(WithRequestID(context.Background(), "abc")).Infow("handled")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "abc", logs.All()[0].ContextMap()[FieldRequestID])
}

func TestCleanup(t *testing.T) {
	Logger = nil
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Cleanup() panicked unexpectedly: %v", r)
		}
	}()
	Cleanup()

	Logger = zap.NewNop().Sugar()
	Cleanup()
}

// TestLoggingFunctions tests the package-level logging functions
func TestLoggingFunctions(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Logger = zap.New(core).Sugar()
	defer func() { Logger = zap.NewNop().Sugar() }()

	Infow("test", "key", "value")
	Errorw("test", "key", "value")
	Warnw("test", "key", "value")
	Debugw("test", "key", "value")
	assert.Equal(t, 4, logs.Len())

	t.Run("With nil logger (should not panic)", func(t *testing.T) {
		Logger = nil
		Infow("test", "key", "value")
		Errorw("test", "key", "value")
		Warnw("test", "key", "value")
		Debugw("test", "key", "value")
	})
}

func TestNewStderr(t *testing.T) {
	for _, jsonOutput := range []bool{true, false} {
		l, err := NewStderr(jsonOutput, zapcore.DebugLevel)
		require.NoError(t, err)
		assert.True(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
	}
}
