package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Presets(t *testing.T) {
	for _, dev := range []bool{true, false} {
		log, err := New(Config{Development: dev})
		require.NoError(t, err)
		assert.NotNil(t, log)
	}
}

func TestNew_Level(t *testing.T) {
	log, err := New(Config{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestMust_Panics(t *testing.T) {
	assert.Panics(t, func() { Must(Config{Level: "loud"}) })
}
