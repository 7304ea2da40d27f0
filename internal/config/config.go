package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// MaxBodyBytes caps ingest request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
	// AggregatorSecret signs aggregator webhook bodies. Empty disables
	// signature checks.
	AggregatorSecret string `yaml:"aggregator_secret"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// RedisConfig points at the readiness score cache. Empty Addr disables it.
type RedisConfig struct {
	Addr            string `yaml:"addr"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	ReadinessPrefix string `yaml:"readiness_prefix"`
}

// KafkaConfig configures ingest-completed events. No brokers disables them.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type IngestConfig struct {
	// Timezone resolves sleep nights and derived-metric dates. Empty means
	// each timestamp's own offset.
	Timezone            string `yaml:"timezone"`
	SleepLabelScheme    string `yaml:"sleep_label_scheme"`
	DerivedLookbackDays int    `yaml:"derived_lookback_days"`
	ScheduleMatchDays   int    `yaml:"schedule_match_days"`
	Concurrency         int    `yaml:"concurrency"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Location loads the configured ingest timezone. It returns nil when none is set.
func (i IngestConfig) Location() (*time.Location, error) {
	if i.Timezone == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(i.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", i.Timezone, err)
	}
	return loc, nil
}

// SlogLevel maps the configured level name, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix HEALTHSYNC_ and underscore-separated paths:
//
//	HEALTHSYNC_SERVER_HOST, HEALTHSYNC_SERVER_PORT,
//	HEALTHSYNC_DB_HOST, HEALTHSYNC_DB_PORT, HEALTHSYNC_DB_NAME,
//	HEALTHSYNC_DB_USER, HEALTHSYNC_DB_PASSWORD, HEALTHSYNC_DB_SSLMODE,
//	HEALTHSYNC_AUTH_API_KEY, HEALTHSYNC_AUTH_AGGREGATOR_SECRET,
//	HEALTHSYNC_TAILSCALE_ENABLED, HEALTHSYNC_REDIS_ADDR, HEALTHSYNC_REDIS_PASSWORD,
//	HEALTHSYNC_KAFKA_BROKERS (comma-separated), HEALTHSYNC_KAFKA_TOPIC,
//	HEALTHSYNC_INGEST_TIMEZONE, HEALTHSYNC_INGEST_SLEEP_LABEL_SCHEME,
//	HEALTHSYNC_LOG_LEVEL, HEALTHSYNC_LOG_FORMAT
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HEALTHSYNC_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("HEALTHSYNC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HEALTHSYNC_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("HEALTHSYNC_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("HEALTHSYNC_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("HEALTHSYNC_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("HEALTHSYNC_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("HEALTHSYNC_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("HEALTHSYNC_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("HEALTHSYNC_AUTH_AGGREGATOR_SECRET"); v != "" {
		cfg.Auth.AggregatorSecret = v
	}
	if v := os.Getenv("HEALTHSYNC_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	if v := os.Getenv("HEALTHSYNC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("HEALTHSYNC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("HEALTHSYNC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("HEALTHSYNC_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("HEALTHSYNC_INGEST_TIMEZONE"); v != "" {
		cfg.Ingest.Timezone = v
	}
	if v := os.Getenv("HEALTHSYNC_INGEST_SLEEP_LABEL_SCHEME"); v != "" {
		cfg.Ingest.SleepLabelScheme = v
	}
	if v := os.Getenv("HEALTHSYNC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HEALTHSYNC_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 64 << 20
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "healthsync"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "healthsync.ingest"
	}
	if c.Ingest.SleepLabelScheme == "" {
		c.Ingest.SleepLabelScheme = "standard"
	}
	if c.Ingest.DerivedLookbackDays == 0 {
		c.Ingest.DerivedLookbackDays = 7
	}
	if c.Ingest.ScheduleMatchDays == 0 {
		c.Ingest.ScheduleMatchDays = 1
	}
	if c.Ingest.Concurrency == 0 {
		c.Ingest.Concurrency = 8
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	switch c.Ingest.SleepLabelScheme {
	case "standard", "legacy":
	default:
		return fmt.Errorf("ingest.sleep_label_scheme must be standard or legacy, got %q", c.Ingest.SleepLabelScheme)
	}
	if c.Ingest.DerivedLookbackDays < 0 || c.Ingest.ScheduleMatchDays < 0 || c.Ingest.Concurrency < 0 {
		return fmt.Errorf("ingest day counts and concurrency must not be negative")
	}
	if _, err := c.Ingest.Location(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
