// Package config loads server settings from configs/config.yml, a local
// .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	Store StoreConfig
	Redis RedisConfig
	Auth  AuthConfig
	Guest GuestConfig

	AllowedOrigins []string
}

type StoreConfig struct {
	Driver        string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
}

// RedisConfig points at the guest registry. An empty URL with Embedded set
// starts an in-process server, which is only suitable for development.
type RedisConfig struct {
	URL      string
	Embedded bool
}

type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

type GuestConfig struct {
	Policy string
	TTL    time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("db.path", "chat.db")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "chat-app")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.embedded", true)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("guests.policy", "trust")
	v.SetDefault("guests.ttl", "24h")
	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// bindEnv maps the bare variable names existing deployments set (PORT,
// JWT_SECRET, ...) onto config keys.
func bindEnv(v *viper.Viper) error {
	for key, env := range map[string]string{
		"port":             "PORT",
		"auth.signing_key": "JWT_SECRET",
		"mongo.uri":        "MONGODB_URI",
		"redis.url":        "REDIS_URL",
	} {
		if err := v.BindEnv(key, "CHAT_"+strings.ToUpper(strings.NewReplacer(".", "_").Replace(key)), env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	return nil
}

// Load reads configuration. dir is searched for config.yml; a missing file
// is not an error, every key has a default.
func Load(dir string) (*Config, error) {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Port:      v.GetString("port"),
		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
		Store: StoreConfig{
			Driver:        strings.ToLower(strings.TrimSpace(v.GetString("store.driver"))),
			SQLitePath:    v.GetString("db.path"),
			MongoURI:      v.GetString("mongo.uri"),
			MongoDatabase: v.GetString("mongo.database"),
		},
		Redis: RedisConfig{
			URL:      v.GetString("redis.url"),
			Embedded: v.GetBool("redis.embedded"),
		},
		Auth: AuthConfig{
			SigningKey: v.GetString("auth.signing_key"),
			TokenTTL:   v.GetDuration("auth.token_ttl"),
		},
		Guest: GuestConfig{
			Policy: strings.ToLower(strings.TrimSpace(v.GetString("guests.policy"))),
			TTL:    v.GetDuration("guests.ttl"),
		},
		AllowedOrigins: v.GetStringSlice("cors.allowed_origins"),
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("unknown store.driver %q (want %q or %q)", c.Store.Driver, DriverSQLite, DriverMongo)
	}
	switch c.Guest.Policy {
	case "trust", "minted":
	default:
		return fmt.Errorf("unknown guests.policy %q (want \"trust\" or \"minted\")", c.Guest.Policy)
	}
	if c.Auth.TokenTTL < 0 {
		return errors.New("auth.token_ttl must not be negative")
	}
	return nil
}
