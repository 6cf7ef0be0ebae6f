package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	MaxRooms        int           `mapstructure:"max_rooms"`
	RoomCapacity    int           `mapstructure:"room_capacity"`
	RoomTimeout     time.Duration `mapstructure:"room_timeout"`
	ReconnectWindow time.Duration `mapstructure:"reconnect_window"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	RedisAddr   string        `mapstructure:"redis_addr"`
	PresenceTTL time.Duration `mapstructure:"presence_ttl"`
	TypingTTL   time.Duration `mapstructure:"typing_ttl"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")

	v.SetDefault("max_rooms", 500)
	v.SetDefault("room_capacity", 8)
	v.SetDefault("room_timeout", "30m")
	// Must stay materially shorter than room_timeout so stale
	// participants are purged before they alone could age a room out.
	v.SetDefault("reconnect_window", "2m")
	v.SetDefault("cleanup_interval", "30s")

	v.SetDefault("redis_addr", "")
	v.SetDefault("presence_ttl", "5m")
	v.SetDefault("typing_ttl", "10s")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.ReconnectWindow >= cfg.RoomTimeout {
		return nil, fmt.Errorf("reconnect_window (%s) must be shorter than room_timeout (%s)", cfg.ReconnectWindow, cfg.RoomTimeout)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Int("max_rooms", cfg.MaxRooms).Msg("config ready")
	return &cfg, nil
}
