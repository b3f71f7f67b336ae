package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrInvalidChunkSize         = errors.New("chunk size must be greater than 0")
	ErrInvalidDrainBuffer       = errors.New("drain buffer size must be greater than 0")
	ErrInvalidProgressThreshold = errors.New("progress threshold must be greater than 0")
	ErrInvalidMaxAttempts       = errors.New("retry attempt ceiling must be greater than 0")
	ErrInvalidBackoff           = errors.New("base backoff must not exceed max backoff")
	ErrMissingDriveCredentials  = errors.New("Drive credentials path must be set")
	ErrMissingDriveToken        = errors.New("Drive token path must be set")
	ErrMissingTelegramToken     = errors.New("Telegram bot token must be set")
)

// Config holds all application configuration
type Config struct {
	Transfer TransferConfig `json:"transfer"`
	Drive    DriveConfig    `json:"drive"`
	Telegram TelegramConfig `json:"telegram"`
}

// TransferConfig holds the chunked-transfer pipeline configuration
type TransferConfig struct {
	ChunkSize         int64         `json:"chunk_size"`         // upload chunk size in bytes
	DrainBufferSize   int           `json:"drain_buffer_size"`  // staging copy buffer in bytes
	ProgressThreshold int64         `json:"progress_threshold"` // bytes between progress events
	MaxAttempts       int           `json:"max_attempts"`       // retry ceiling per chunk push
	BaseBackoff       time.Duration `json:"base_backoff"`
	MaxBackoff        time.Duration `json:"max_backoff"`
	ChunkTimeout      time.Duration `json:"chunk_timeout"` // per chunk push, not per transfer
	StagingDir        string        `json:"staging_dir"`   // empty means the system temp dir
}

// DriveConfig holds Google Drive destination configuration
type DriveConfig struct {
	CredentialsPath string `json:"credentials_path"`
	TokenPath       string `json:"token_path"`
	FolderName      string `json:"folder_name"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	Token string `json:"token"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Transfer: TransferConfig{
			ChunkSize:         8 * 1024 * 1024, // 8 MiB chunks amortize per-request overhead
			DrainBufferSize:   1024 * 1024,     // 1 MiB bounded staging buffer
			ProgressThreshold: 256 * 1024,      // progress event every 256 KiB
			MaxAttempts:       3,
			BaseBackoff:       500 * time.Millisecond,
			MaxBackoff:        30 * time.Second,
			ChunkTimeout:      2 * time.Minute,
			StagingDir:        "",
		},
		Drive: DriveConfig{
			CredentialsPath: "",
			TokenPath:       "",
			FolderName:      "Telegram Files",
		},
		Telegram: TelegramConfig{
			Token: "",
		},
	}
}

// Load returns the default configuration overlaid with any values viper
// picked up from the config file or environment.
func Load() *Config {
	cfg := NewDefaultConfig()

	if viper.IsSet("transfer.chunk_size") {
		cfg.Transfer.ChunkSize = viper.GetInt64("transfer.chunk_size")
	}
	if viper.IsSet("transfer.drain_buffer_size") {
		cfg.Transfer.DrainBufferSize = viper.GetInt("transfer.drain_buffer_size")
	}
	if viper.IsSet("transfer.progress_threshold") {
		cfg.Transfer.ProgressThreshold = viper.GetInt64("transfer.progress_threshold")
	}
	if viper.IsSet("transfer.max_attempts") {
		cfg.Transfer.MaxAttempts = viper.GetInt("transfer.max_attempts")
	}
	if viper.IsSet("transfer.base_backoff") {
		cfg.Transfer.BaseBackoff = viper.GetDuration("transfer.base_backoff")
	}
	if viper.IsSet("transfer.max_backoff") {
		cfg.Transfer.MaxBackoff = viper.GetDuration("transfer.max_backoff")
	}
	if viper.IsSet("transfer.chunk_timeout") {
		cfg.Transfer.ChunkTimeout = viper.GetDuration("transfer.chunk_timeout")
	}
	if viper.IsSet("transfer.staging_dir") {
		cfg.Transfer.StagingDir = viper.GetString("transfer.staging_dir")
	}
	if viper.IsSet("drive.credentials_path") {
		cfg.Drive.CredentialsPath = viper.GetString("drive.credentials_path")
	}
	if viper.IsSet("drive.token_path") {
		cfg.Drive.TokenPath = viper.GetString("drive.token_path")
	}
	if viper.IsSet("drive.folder_name") {
		cfg.Drive.FolderName = viper.GetString("drive.folder_name")
	}
	if viper.IsSet("telegram.token") {
		cfg.Telegram.Token = viper.GetString("telegram.token")
	}

	return cfg
}

// Validate ensures the transfer configuration is valid
func (c *Config) Validate() error {
	if c.Transfer.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.Transfer.DrainBufferSize <= 0 {
		return ErrInvalidDrainBuffer
	}
	if c.Transfer.ProgressThreshold <= 0 {
		return ErrInvalidProgressThreshold
	}
	if c.Transfer.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if c.Transfer.BaseBackoff > c.Transfer.MaxBackoff {
		return ErrInvalidBackoff
	}
	return nil
}

// ValidateDrive ensures the Drive destination can be constructed
func (c *Config) ValidateDrive() error {
	if c.Drive.CredentialsPath == "" {
		return ErrMissingDriveCredentials
	}
	if c.Drive.TokenPath == "" {
		return ErrMissingDriveToken
	}
	return nil
}

// ValidateTelegram ensures the bot host can be constructed
func (c *Config) ValidateTelegram() error {
	if c.Telegram.Token == "" {
		return ErrMissingTelegramToken
	}
	return nil
}
