// Package config provides configuration loading for the sync core.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Backend    BackendConfig    `mapstructure:"backend"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	WebsocketURL   string `mapstructure:"websocket_url"`
	Token          string `mapstructure:"token"`
	CongregationID string `mapstructure:"congregation_id"`
	Role           string `mapstructure:"role"`
	RequestTimeout string `mapstructure:"request_timeout"`
}

func (b BackendConfig) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(b.RequestTimeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type SyncConfig struct {
	MaxQueueSize       int    `mapstructure:"max_queue_size"`
	MaxRetries         int    `mapstructure:"max_retries"`
	PollInterval       string `mapstructure:"poll_interval"`
	IndicatorHideDelay string `mapstructure:"indicator_hide_delay"`
}

func (s SyncConfig) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(s.PollInterval)
	if err != nil {
		return 2500 * time.Millisecond
	}
	return d
}

func (s SyncConfig) GetIndicatorHideDelay() time.Duration {
	d, err := time.ParseDuration(s.IndicatorHideDelay)
	if err != nil {
		return 1500 * time.Millisecond
	}
	return d
}

type ReconcilerConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Schedule       string `mapstructure:"schedule"`
	HorizonWeeks   int    `mapstructure:"horizon_weeks"`
	MeetingWeekday string `mapstructure:"meeting_weekday"`
}

// GetMeetingWeekday parses the configured weekday name, defaulting to Sunday.
func (r ReconcilerConfig) GetMeetingWeekday() time.Weekday {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), r.MeetingWeekday) {
			return d
		}
	}
	return time.Sunday
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from the given file, environment variables
// (PODIUM_ prefix) and built-in defaults. A missing file is not an error;
// defaults cover every setting except backend credentials.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("sync.max_queue_size", 100)
	v.SetDefault("sync.max_retries", 3)
	v.SetDefault("sync.poll_interval", "2500ms")
	v.SetDefault("sync.indicator_hide_delay", "1500ms")
	v.SetDefault("backend.request_timeout", "15s")
	v.SetDefault("backend.role", "viewer")
	v.SetDefault("reconciler.enabled", true)
	v.SetDefault("reconciler.schedule", "0 3 * * *")
	v.SetDefault("reconciler.horizon_weeks", 8)
	v.SetDefault("reconciler.meeting_weekday", "Sunday")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetEnvPrefix("PODIUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
