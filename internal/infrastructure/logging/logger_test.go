package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "default config",
			cfg:     DefaultConfig(),
			wantErr: false,
		},
		{
			name:    "development config",
			cfg:     DevelopmentConfig(),
			wantErr: false,
		},
		{
			name: "invalid level",
			cfg: Config{
				Level:       "shouting",
				OutputPaths: []string{"stdout"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			logger.Info("test message")
			// Sync on stdout fails on some platforms; exercise it without asserting.
			_ = logger.Sync()
		})
	}
}

func TestNewDefaultNeverNil(t *testing.T) {
	logger := NewDefault()
	require.NotNil(t, logger)
	require.NotNil(t, logger.Logger)
}

func TestComponent(t *testing.T) {
	logger := NewNop()

	child := logger.Component("env")
	require.NotNil(t, child)
	assert.NotSame(t, logger, child)

	// Named loggers chain
	grandchild := child.Component("probe")
	require.NotNil(t, grandchild)
}
