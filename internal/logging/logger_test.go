package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		mode      string
		wantDebug bool
	}{
		{"production", false},
		{"PROD", false},
		{"development", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			log, err := New(tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDebug, log.Desugar().Core().Enabled(zapcore.DebugLevel))
		})
	}
}
