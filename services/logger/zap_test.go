package logsvc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tailwebs/classwork/core"
)

func TestZapLogger_fields(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	logger := &ZapLogger{z: zap.New(obs)}

	logger.Warn("probing own submission",
		map[string]interface{}{"assignmentId": "a1"},
		core.Person{ID: "s1", Name: "Sue", Email: "sue@x.io"},
		errors.New("connection reset"),
		zap.Int("attempt", 2),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "probing own submission", entry.Message)
	assert.Equal(t, map[string]interface{}{
		"assignmentId": "a1",
		"person.id":    "s1",
		"person.email": "sue@x.io",
		"error":        "connection reset",
		"attempt":      int64(2),
	}, entry.ContextMap())
}

func TestNewZapLogger(t *testing.T) {
	conf := core.NewTestConfig("")
	logger, err := NewZapLogger(conf)
	require.NoError(t, err)
	logger.Debug("hello")

	conf.Debug = false
	logger, err = NewZapLogger(conf)
	require.NoError(t, err)
	logger.Info("hello", map[string]interface{}{"k": "v"})
}
