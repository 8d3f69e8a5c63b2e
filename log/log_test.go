package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Debug("hidden")
	Info("Pipeline:processed", zap.String("tile", "T1"))
	Warn("careful")
	Error("boom", zap.Int("band", 6))

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, "Pipeline:processed", entries[0].Message)
		assert.Equal(t, "T1", entries[0].ContextMap()["tile"])
		assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	}
}

func TestInit(t *testing.T) {
	defer SetLogger(nil)
	assert.NoError(t, Init("debug", true))
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel))
	assert.NoError(t, Init("warn", false))
	assert.False(t, L().Core().Enabled(zapcore.InfoLevel))
	assert.Error(t, Init("loud", false))
}
