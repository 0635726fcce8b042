// Package config loads application configuration from the environment and an
// optional .env file. Keys map to environment variables by upper-casing and
// replacing dots with underscores: store.backend is STORE_BACKEND.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	platformstrings "clerk/pkg/platform/strings"
)

// Config is the full application configuration.
type Config struct {
	Server   Server         `mapstructure:"server"`
	Log      Log            `mapstructure:"log"`
	Policy   Policy         `mapstructure:"policy"`
	Store    Store          `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Minio    MinioConfig    `mapstructure:"minio"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Game     Game           `mapstructure:"game"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `mapstructure:"addr" default:":5000"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" default:"10s"`
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int `mapstructure:"rate_limit" default:"0"`
}

// Log selects the slog handler.
type Log struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level" default:"info"`
	// Format is json or text.
	Format string `mapstructure:"format" default:"json"`
}

// Policy adjusts the reconciliation policy.
type Policy struct {
	// File replaces the embedded default policy.
	File            string `mapstructure:"file" default:""`
	PhoneValidation bool   `mapstructure:"phone_validation" default:"false"`
	// Zero thresholds keep the policy's values.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" default:"0"`
	AcceptThreshold     float64 `mapstructure:"accept_threshold" default:"0"`
}

// Snapshot store backends.
const (
	BackendMemory   = "memory"
	BackendDir      = "dir"
	BackendMinio    = "minio"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

var backends = []string{BackendMemory, BackendDir, BackendMinio, BackendRedis, BackendPostgres}

// Store selects where client snapshots are read from.
type Store struct {
	Backend string `mapstructure:"backend" default:"dir"`
	// Dir is the snapshot folder for the dir backend.
	Dir string `mapstructure:"dir" default:"out"`
	// BatchLimit bounds concurrent evaluations in batch runs.
	BatchLimit int `mapstructure:"batch_limit" default:"8"`
}

// RedisConfig configures the redis client. An empty URL disables redis.
type RedisConfig struct {
	URL          string        `mapstructure:"url" default:""`
	Prefix       string        `mapstructure:"prefix" default:"clerk:snapshot:"`
	PoolSize     int           `mapstructure:"pool_size" default:"10"`
	MinIdleConns int           `mapstructure:"min_idle_conns" default:"2"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" default:"3s"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" default:"3s"`
}

// PostgresConfig configures the database/sql pool.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn" default:""`
	MaxOpenConns    int           `mapstructure:"max_open_conns" default:"10"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" default:"30m"`
	// Migrate creates the snapshot table on startup.
	Migrate bool `mapstructure:"migrate" default:"true"`
}

// MinioConfig configures the object storage snapshot store.
type MinioConfig struct {
	Endpoint       string `mapstructure:"endpoint" default:"localhost:9000"`
	AccessKey      string `mapstructure:"access_key" default:"minioadmin"`
	SecretKey      string `mapstructure:"secret_key" default:"minioadmin"`
	UseSSL         bool   `mapstructure:"use_ssl" default:"false"`
	Bucket         string `mapstructure:"bucket" default:"clerk-snapshots"`
	Prefix         string `mapstructure:"prefix" default:""`
	Region         string `mapstructure:"region" default:""`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" default:"30"`
}

// KafkaConfig configures decision announcements. No brokers means decisions
// are only logged.
type KafkaConfig struct {
	Brokers           []string      `mapstructure:"brokers" default:""`
	Topic             string        `mapstructure:"topic" default:"clerk.decisions"`
	Partitions        int32         `mapstructure:"partitions" default:"3"`
	ReplicationFactor int16         `mapstructure:"replication_factor" default:"1"`
	PublishTimeout    time.Duration `mapstructure:"publish_timeout" default:"5s"`
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// Game configures the game session client.
type Game struct {
	APIURL      string        `mapstructure:"api_url" default:""`
	APIKey      string        `mapstructure:"api_key" default:""`
	PlayerName  string        `mapstructure:"player_name" default:"clerk"`
	DownloadDir string        `mapstructure:"download_dir" default:""`
	Manual      bool          `mapstructure:"manual" default:"false"`
	MaxRounds   int           `mapstructure:"max_rounds" default:"0"`
	MaxRetries  uint64        `mapstructure:"max_retries" default:"3"`
	Pause       time.Duration `mapstructure:"pause" default:"0s"`
}

// Load reads configuration from the environment, after loading path/.env
// when it exists.
func Load(path string) (*Config, error) {
	envPath := ".env"
	if path != "" && path != "." {
		envPath = strings.TrimRight(path, "/") + "/.env"
	}
	// A missing .env is normal outside development.
	_ = godotenv.Load(envPath)

	v := viper.New()
	bindValues(v, Config{}, "")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Kafka.Brokers = platformstrings.DedupeAndTrim(cfg.Kafka.Brokers)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(backends, c.Store.Backend) {
		errs = append(errs, fmt.Errorf("store.backend %q is not one of %s", c.Store.Backend, strings.Join(backends, ", ")))
	}
	if c.Store.Backend == BackendRedis && c.Redis.URL == "" {
		errs = append(errs, errors.New("store.backend redis requires redis.url"))
	}
	if c.Store.Backend == BackendPostgres && c.Postgres.DSN == "" {
		errs = append(errs, errors.New("store.backend postgres requires postgres.dsn"))
	}
	if c.Store.Backend == BackendDir && c.Store.Dir == "" {
		errs = append(errs, errors.New("store.backend dir requires store.dir"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit %d is negative", c.Server.RateLimit))
	}
	if c.Policy.SimilarityThreshold < 0 || c.Policy.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("policy.similarity_threshold %v outside [0,1]", c.Policy.SimilarityThreshold))
	}
	if c.Policy.AcceptThreshold < 0 || c.Policy.AcceptThreshold > 100 {
		errs = append(errs, fmt.Errorf("policy.accept_threshold %v outside [0,100]", c.Policy.AcceptThreshold))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not json or text", c.Log.Format))
	}
	return errors.Join(errs...)
}

// bindValues registers every mapstructure key with its default tag so
// AutomaticEnv can find it during Unmarshal.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// time.Duration is an int64, not a struct, so only config sections recurse.
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		v.SetDefault(key, field.Tag.Get("default"))
	}
}
