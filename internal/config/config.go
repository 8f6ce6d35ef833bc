package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env           string        `mapstructure:"ENV"`
	Port          string        `mapstructure:"PORT"`
	ServerURL     string        `mapstructure:"SERVER_URL"`
	WSPath        string        `mapstructure:"WS_PATH"`
	AdminKey      string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed   string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	WindowHours   int           `mapstructure:"WINDOW_HOURS"`
	OverviewZoom  float64       `mapstructure:"MAP_OVERVIEW_ZOOM"`
	DetailZoom    float64       `mapstructure:"MAP_DETAIL_ZOOM"`
	MaxPulsing    int           `mapstructure:"MAX_PULSING"`
	FeedMax       int           `mapstructure:"LIVE_FEED_MAX"`
	FeedTTL       time.Duration `mapstructure:"LIVE_FEED_TTL"`
	PollInterval  time.Duration `mapstructure:"HISTORY_POLL_INTERVAL"`
	HistoryMax    int           `mapstructure:"HISTORY_MAX"`
	AutoplayDelay time.Duration `mapstructure:"HISTORY_AUTOPLAY_DELAY"`
	PruneInterval time.Duration `mapstructure:"PRUNE_INTERVAL"`
	PingInterval  time.Duration `mapstructure:"WS_PING_INTERVAL"`
	AudioEnabled  bool          `mapstructure:"AUDIO_ENABLED"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8090")
	v.SetDefault("SERVER_URL", "http://localhost:3001")
	v.SetDefault("WS_PATH", "/ws")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("WINDOW_HOURS", 12)
	v.SetDefault("MAP_OVERVIEW_ZOOM", 10)
	v.SetDefault("MAP_DETAIL_ZOOM", 16)
	v.SetDefault("MAX_PULSING", 3)
	v.SetDefault("LIVE_FEED_MAX", 5)
	v.SetDefault("LIVE_FEED_TTL", "45s")
	v.SetDefault("HISTORY_POLL_INTERVAL", "15s")
	v.SetDefault("HISTORY_MAX", 50)
	v.SetDefault("HISTORY_AUTOPLAY_DELAY", "750ms")
	v.SetDefault("PRUNE_INTERVAL", "1m")
	v.SetDefault("WS_PING_INTERVAL", "25s")
	v.SetDefault("AUDIO_ENABLED", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
