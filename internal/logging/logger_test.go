package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		level string
		want  zap.AtomicLevel
	}{
		{"production default", "production", "", zap.NewAtomicLevelAt(zap.InfoLevel)},
		{"development debug", "development", "debug", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"trace maps to debug", "production", "TRACE", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"warn", "production", "warn", zap.NewAtomicLevelAt(zap.WarnLevel)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.env, tt.level)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.want.Level()))
			assert.False(t, logger.Core().Enabled(tt.want.Level()-1))
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("production", "loud")
	assert.Error(t, err)
}
