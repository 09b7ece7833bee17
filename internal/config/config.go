// Package config loads server configuration from an optional file plus
// TILEWORLD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. TILEWORLD_SERVER_PORT
const EnvPrefix = "TILEWORLD"

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageMongo  = "mongo"
)

// Config is the full server configuration
type Config struct {
	Server  ServerConf  `mapstructure:"server"`
	Log     LogConf     `mapstructure:"log"`
	Auth    AuthConf    `mapstructure:"auth"`
	Storage StorageConf `mapstructure:"storage"`
	World   WorldConf   `mapstructure:"world"`
	Session SessionConf `mapstructure:"session"`
	Persist PersistConf `mapstructure:"persist"`
	WS      WSConf      `mapstructure:"ws"`
	Feed    FeedConf    `mapstructure:"feed"`
}

type ServerConf struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConf struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConf struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	LookupTimeout time.Duration `mapstructure:"lookup_timeout"`
}

type StorageConf struct {
	Type  string    `mapstructure:"type"`
	Redis RedisConf `mapstructure:"redis"`
	Mongo MongoConf `mapstructure:"mongo"`
	Cache CacheConf `mapstructure:"cache"`
}

type RedisConf struct {
	URL          string `mapstructure:"url"`
	KeyPrefix    string `mapstructure:"key_prefix"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type MongoConf struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type CacheConf struct {
	Enabled bool          `mapstructure:"enabled"`
	MaxCost int64         `mapstructure:"max_cost"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type WorldConf struct {
	SpawnX float64 `mapstructure:"spawn_x"`
	SpawnY float64 `mapstructure:"spawn_y"`
}

type SessionConf struct {
	Policy string `mapstructure:"policy"`
}

type PersistConf struct {
	QueueSize          int           `mapstructure:"queue_size"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	CheckpointInterval time.Duration `mapstructure:"checkpoint_interval"`
}

type WSConf struct {
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type FeedConf struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
	Embedded      bool   `mapstructure:"embedded"`
	EmbeddedPort  int    `mapstructure:"embedded_port"`
}

// SetDefaults registers every key with its default so env overrides resolve
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("auth.jwt_secret", "change-me")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.lookup_timeout", 5*time.Second)

	v.SetDefault("storage.type", StorageMemory)
	v.SetDefault("storage.redis.url", "redis://localhost:6379")
	v.SetDefault("storage.redis.key_prefix", "tileworld")
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("storage.mongo.database", "tileworld")
	v.SetDefault("storage.mongo.collection", "profiles")
	v.SetDefault("storage.cache.enabled", false)
	v.SetDefault("storage.cache.max_cost", 10_000)
	v.SetDefault("storage.cache.ttl", 5*time.Minute)

	v.SetDefault("world.spawn_x", 400.0)
	v.SetDefault("world.spawn_y", 300.0)

	v.SetDefault("session.policy", "multi")

	v.SetDefault("persist.queue_size", 256)
	v.SetDefault("persist.write_timeout", 5*time.Second)
	v.SetDefault("persist.checkpoint_interval", time.Duration(0))

	v.SetDefault("ws.ping_period", 54*time.Second)
	v.SetDefault("ws.pong_wait", 60*time.Second)
	v.SetDefault("ws.send_buffer", 256)
	v.SetDefault("ws.max_message_size", 4096)

	v.SetDefault("feed.url", "")
	v.SetDefault("feed.subject_prefix", "tileworld.presence")
	v.SetDefault("feed.embedded", false)
	v.SetDefault("feed.embedded_port", 4222)
}

// Default returns the configuration with no file and no environment
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Load reads configFile (if non-empty) and applies TILEWORLD_* overrides
func Load(configFile string) (Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with
func (c Config) Validate() error {
	var errs []error

	switch c.Storage.Type {
	case StorageMemory, StorageRedis, StorageMongo:
	default:
		errs = append(errs, fmt.Errorf("storage.type %q: must be memory, redis or mongo", c.Storage.Type))
	}
	switch c.Session.Policy {
	case "multi", "single":
	default:
		errs = append(errs, fmt.Errorf("session.policy %q: must be multi or single", c.Session.Policy))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: must be json or text", c.Log.Format))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret must not be empty"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.WS.PingPeriod >= c.WS.PongWait {
		errs = append(errs, errors.New("ws.ping_period must be shorter than ws.pong_wait"))
	}
	if c.Persist.CheckpointInterval < 0 {
		errs = append(errs, errors.New("persist.checkpoint_interval must not be negative"))
	}

	return errors.Join(errs...)
}
