package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleferry/internal/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := config.NewDefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(8*1024*1024), cfg.Transfer.ChunkSize)
	assert.Equal(t, 1024*1024, cfg.Transfer.DrainBufferSize)
	assert.Equal(t, 3, cfg.Transfer.MaxAttempts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{
			name:    "zero chunk size",
			mutate:  func(c *config.Config) { c.Transfer.ChunkSize = 0 },
			wantErr: config.ErrInvalidChunkSize,
		},
		{
			name:    "negative drain buffer",
			mutate:  func(c *config.Config) { c.Transfer.DrainBufferSize = -1 },
			wantErr: config.ErrInvalidDrainBuffer,
		},
		{
			name:    "zero progress threshold",
			mutate:  func(c *config.Config) { c.Transfer.ProgressThreshold = 0 },
			wantErr: config.ErrInvalidProgressThreshold,
		},
		{
			name:    "zero attempts",
			mutate:  func(c *config.Config) { c.Transfer.MaxAttempts = 0 },
			wantErr: config.ErrInvalidMaxAttempts,
		},
		{
			name: "base backoff above max",
			mutate: func(c *config.Config) {
				c.Transfer.BaseBackoff = time.Minute
				c.Transfer.MaxBackoff = time.Second
			},
			wantErr: config.ErrInvalidBackoff,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestLoadOverlaysViperValues(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("transfer.chunk_size", 4*1024*1024)
	viper.Set("transfer.max_attempts", 5)
	viper.Set("drive.folder_name", "Relay")
	viper.Set("telegram.token", "123:abc")

	cfg := config.Load()

	assert.Equal(t, int64(4*1024*1024), cfg.Transfer.ChunkSize)
	assert.Equal(t, 5, cfg.Transfer.MaxAttempts)
	assert.Equal(t, "Relay", cfg.Drive.FolderName)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	// Untouched keys keep their defaults
	assert.Equal(t, 1024*1024, cfg.Transfer.DrainBufferSize)
}

func TestValidateDriveAndTelegram(t *testing.T) {
	cfg := config.NewDefaultConfig()

	assert.ErrorIs(t, cfg.ValidateDrive(), config.ErrMissingDriveCredentials)
	cfg.Drive.CredentialsPath = "creds.json"
	assert.ErrorIs(t, cfg.ValidateDrive(), config.ErrMissingDriveToken)
	cfg.Drive.TokenPath = "token.json"
	assert.NoError(t, cfg.ValidateDrive())

	assert.ErrorIs(t, cfg.ValidateTelegram(), config.ErrMissingTelegramToken)
	cfg.Telegram.Token = "123:abc"
	assert.NoError(t, cfg.ValidateTelegram())
}
