package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"listening-quiz-service/internal/app"
)

type Config struct {
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		PubSub   bool   `mapstructure:"pubsub"`
	} `mapstructure:"redis"`
	Postgres struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"postgres"`
	Catalog struct {
		File string `mapstructure:"file"`
		TTL  string `mapstructure:"ttl"`
	} `mapstructure:"catalog"`
	Room struct {
		TTL string `mapstructure:"ttl"`
	} `mapstructure:"room"`
	Round struct {
		StartMargin       string `mapstructure:"start_margin"`
		OptionGap         string `mapstructure:"option_gap"`
		AnswerWindow      string `mapstructure:"answer_window"`
		FinalizeLockTTL   string `mapstructure:"finalize_lock_ttl"`
		AutoFinalize      bool   `mapstructure:"auto_finalize"`
		AutoFinalizeGrace string `mapstructure:"auto_finalize_grace"`
	} `mapstructure:"round"`
	Log struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	} `mapstructure:"log"`
}

// Load reads YAML config from path. Every key can be overridden by a QUIZ_ environment
// variable (QUIZ_REDIS_ADDR for redis.addr). A missing file leaves the defaults in place.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("QUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return Config{}, err
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pubsub", true)
	v.SetDefault("postgres.url", "")
	v.SetDefault("catalog.file", "")
	v.SetDefault("catalog.ttl", "10m")
	v.SetDefault("room.ttl", "2h")
	v.SetDefault("round.start_margin", "1s")
	v.SetDefault("round.option_gap", "3s")
	v.SetDefault("round.answer_window", "10s")
	v.SetDefault("round.finalize_lock_ttl", "30s")
	v.SetDefault("round.auto_finalize", false)
	v.SetDefault("round.auto_finalize_grace", "500ms")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Settings converts the round and room section into service settings and rejects timings
// that cannot produce a valid round schedule.
func (c Config) Settings() (app.Settings, error) {
	def := app.DefaultSettings()
	settings := app.Settings{
		RoomTTL:           TTLDuration(c.Room.TTL, def.RoomTTL),
		StartMargin:       TTLDuration(c.Round.StartMargin, def.StartMargin),
		OptionGap:         TTLDuration(c.Round.OptionGap, def.OptionGap),
		AnswerWindow:      TTLDuration(c.Round.AnswerWindow, def.AnswerWindow),
		FinalizeLockTTL:   TTLDuration(c.Round.FinalizeLockTTL, def.FinalizeLockTTL),
		AutoFinalize:      c.Round.AutoFinalize,
		AutoFinalizeGrace: TTLDuration(c.Round.AutoFinalizeGrace, def.AutoFinalizeGrace),
	}
	if err := settings.Validate(); err != nil {
		return app.Settings{}, err
	}
	return settings, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
