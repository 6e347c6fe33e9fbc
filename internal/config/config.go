package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Plex (media server)
	PlexURL   string
	PlexToken string

	// Content managers
	RadarrURL    string
	RadarrAPIKey string
	SonarrURL    string
	SonarrAPIKey string

	// Overseerr (request broker, optional)
	OverseerrURL    string
	OverseerrAPIKey string

	// Notifications (optional)
	WebhookURL string

	// Deletion defaults, captured onto items at queue time
	GracePeriodDays       int
	DefaultDeletionAction models.DeletionAction
	ResetOverseerr        bool
	ReminderDays          int // notify when daysRemaining falls to or below this

	// Task schedules (cron expressions)
	ScanCron     string
	QueueCron    string
	ReminderCron string
	SyncCron     string

	// Server
	ServerPort string

	// Paths
	DatabaseFile string // $CONFIG_DIR/prunerr.db

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"
}

// OverseerrEnabled reports whether the request broker is configured
func (c *Config) OverseerrEnabled() bool {
	return c.OverseerrURL != "" && c.OverseerrAPIKey != ""
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("GRACE_PERIOD_DAYS", 7)
	viper.SetDefault("DEFAULT_DELETION_ACTION", string(models.ActionUnmonitorAndDelete))
	viper.SetDefault("RESET_OVERSEERR", true)
	viper.SetDefault("REMINDER_DAYS", 1)
	viper.SetDefault("SCAN_CRON", "0 2 * * *")
	viper.SetDefault("QUEUE_CRON", "30 2 * * *")
	viper.SetDefault("REMINDER_CRON", "0 9 * * *")
	viper.SetDefault("SYNC_CRON", "0 */6 * * *")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "prunerr")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		// Plex
		PlexURL:   viper.GetString("PLEX_URL"),
		PlexToken: viper.GetString("PLEX_TOKEN"),

		// Content managers
		RadarrURL:    viper.GetString("RADARR_URL"),
		RadarrAPIKey: viper.GetString("RADARR_API_KEY"),
		SonarrURL:    viper.GetString("SONARR_URL"),
		SonarrAPIKey: viper.GetString("SONARR_API_KEY"),

		// Overseerr (optional)
		OverseerrURL:    viper.GetString("OVERSEERR_URL"),
		OverseerrAPIKey: viper.GetString("OVERSEERR_API_KEY"),

		// Notifications (optional)
		WebhookURL: viper.GetString("WEBHOOK_URL"),

		// Deletion defaults
		GracePeriodDays:       viper.GetInt("GRACE_PERIOD_DAYS"),
		DefaultDeletionAction: models.DeletionAction(viper.GetString("DEFAULT_DELETION_ACTION")),
		ResetOverseerr:        viper.GetBool("RESET_OVERSEERR"),
		ReminderDays:          viper.GetInt("REMINDER_DAYS"),

		// Schedules
		ScanCron:     viper.GetString("SCAN_CRON"),
		QueueCron:    viper.GetString("QUEUE_CRON"),
		ReminderCron: viper.GetString("REMINDER_CRON"),
		SyncCron:     viper.GetString("SYNC_CRON"),

		// Server
		ServerPort: viper.GetString("SERVER_PORT"),

		// Paths
		DatabaseFile: filepath.Join(configDir, "prunerr.db"),

		// Logging
		LogLevel:  viper.GetString("LOG_LEVEL"),
		LogFormat: viper.GetString("LOG_FORMAT"),
	}

	// Validate required fields
	if config.PlexURL == "" {
		return nil, fmt.Errorf("PLEX_URL is required")
	}
	if config.PlexToken == "" {
		return nil, fmt.Errorf("PLEX_TOKEN is required")
	}
	if config.RadarrURL == "" {
		return nil, fmt.Errorf("RADARR_URL is required")
	}
	if config.RadarrAPIKey == "" {
		return nil, fmt.Errorf("RADARR_API_KEY is required")
	}
	if config.SonarrURL == "" {
		return nil, fmt.Errorf("SONARR_URL is required")
	}
	if config.SonarrAPIKey == "" {
		return nil, fmt.Errorf("SONARR_API_KEY is required")
	}
	if !config.DefaultDeletionAction.Valid() {
		return nil, fmt.Errorf("DEFAULT_DELETION_ACTION %q is not a valid deletion action", config.DefaultDeletionAction)
	}
	if config.GracePeriodDays < 0 {
		return nil, fmt.Errorf("GRACE_PERIOD_DAYS must not be negative")
	}

	return config, nil
}
