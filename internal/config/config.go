package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the service configuration.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Matching MatchingConfig `mapstructure:"matching"`
	Log      LogConfig      `mapstructure:"log"`
	River    RiverConfig    `mapstructure:"river"`
}

type HTTPConfig struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type LedgerConfig struct {
	GatewayDelay   time.Duration `mapstructure:"gateway_delay"`
	GatewayTimeout time.Duration `mapstructure:"gateway_timeout"`
	StoreTimeout   time.Duration `mapstructure:"store_timeout"`
}

type MatchingConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RiverConfig struct {
	MaxWorkers int `mapstructure:"max_workers"`
}

// Loaded pairs a Config with the viper instance it came from, so callers can
// watch the file for changes.
type Loaded struct {
	*Config
	v *viper.Viper
}

// Load reads configPath (or ./config.yaml, ./config/config.yaml when empty),
// overlays SKILLSWAP_* environment variables and applies defaults.
func Load(configPath string) (*Loaded, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SKILLSWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		slog.Debug("config file not found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyLegacyEnv(&cfg)

	if cfg.Database.URL == "" {
		return nil, errors.New("database.url (or DATABASE_URL) is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret (or JWT_SECRET) is required")
	}
	return &Loaded{Config: &cfg, v: v}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", "8080")
	v.SetDefault("http.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("ledger.gateway_delay", time.Second)
	v.SetDefault("ledger.gateway_timeout", 5*time.Second)
	v.SetDefault("ledger.store_timeout", 10*time.Second)

	v.SetDefault("matching.default_limit", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("river.max_workers", 10)
}

// applyLegacyEnv honours the unprefixed variables deployments already set.
func applyLegacyEnv(cfg *Config) {
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if p := os.Getenv("PORT"); p != "" && os.Getenv("SKILLSWAP_HTTP_PORT") == "" {
		cfg.HTTP.Port = p
	}
}

// OnLogLevelChange watches the config file and calls fn with the new
// log.level whenever the file is written. It is a no-op without a file.
func (l *Loaded) OnLogLevelChange(fn func(level string)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		fn(l.v.GetString("log.level"))
	})
	l.v.WatchConfig()
}
