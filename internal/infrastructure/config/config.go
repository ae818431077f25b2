// Package config loads service settings from config.toml and SHOPFLOOR_*
// environment variables on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SHOPFLOOR_DATABASE_PASSWORD.
const EnvPrefix = "SHOPFLOOR"

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Log         LogConfig         `mapstructure:"log"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Attribution AttributionConfig `mapstructure:"attribution"`
	ReportCache ReportCacheConfig `mapstructure:"report_cache"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or sqlite
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	Path            string        `mapstructure:"path"` // sqlite only
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int           `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int           `mapstructure:"conn_max_idle_time"` // minutes
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
}

// TelemetryConfig drives both OTLP pipelines. Tracing follows Enabled,
// metrics follow MetricsEnabled.
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
}

type AttributionConfig struct {
	// TargetStation is the station the missing-attribution detector checks.
	TargetStation string `mapstructure:"target_station"`
	// StalenessBound is the oldest preceding event a backfill may anchor on.
	StalenessBound time.Duration `mapstructure:"staleness_bound"`
	// FallbackOffset places the backfill start before now when nothing anchors it.
	FallbackOffset       time.Duration `mapstructure:"fallback_offset"`
	OfficeWindowPadding  time.Duration `mapstructure:"office_window_padding"`
	QueryTimeout         time.Duration `mapstructure:"query_timeout"`
	DefaultPolicy        string        `mapstructure:"default_policy"`
	MaxSyntheticDuration time.Duration `mapstructure:"max_synthetic_duration"`
	MissingScanInterval  time.Duration `mapstructure:"missing_scan_interval"`
}

type ReportCacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Backend    string        `mapstructure:"backend"` // memory or redis
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
}

// KafkaConfig configures the audit sink for backfill events.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	ClientID     string        `mapstructure:"client_id"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

var defaults = map[string]any{
	"app.name": "shopfloor",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "shopfloor",
	"database.sslmode":            "disable",
	"database.path":               "shopfloor.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,
	"database.slow_threshold":     200 * time.Millisecond,
	"database.log_level":          "warn",

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout": 15 * time.Second,
	// a report may spend the whole query budget before writing
	"http.write_timeout":    45 * time.Second,
	"http.idle_timeout":     60 * time.Second,
	"http.shutdown_timeout": 30 * time.Second,
	"http.max_header_bytes": 1 << 20,
	"http.trusted_proxies":  []string{},

	"telemetry.enabled":            false,
	"telemetry.collector_endpoint": "localhost:4317",
	"telemetry.sampling_ratio":     1.0,
	"telemetry.service_name":       "shopfloor",
	"telemetry.insecure":           false,
	"telemetry.metrics_enabled":    false,
	"telemetry.metrics_interval":   time.Minute,

	"attribution.target_station":         "Sewing",
	"attribution.staleness_bound":        30 * 24 * time.Hour,
	"attribution.fallback_offset":        2 * time.Hour,
	"attribution.office_window_padding":  72 * time.Hour,
	"attribution.query_timeout":          30 * time.Second,
	"attribution.default_policy":         "workflow_gated",
	"attribution.max_synthetic_duration": 24 * time.Hour,
	"attribution.missing_scan_interval":  5 * time.Minute,

	"report_cache.enabled":     false,
	"report_cache.backend":     "memory",
	"report_cache.ttl":         5 * time.Minute,
	"report_cache.max_entries": 256,
	"report_cache.key_prefix":  "shopfloor:report:",

	"kafka.enabled":       false,
	"kafka.brokers":       []string{"localhost:9092"},
	"kafka.topic":         "shopfloor.attribution.audit",
	"kafka.client_id":     "shopfloor",
	"kafka.write_timeout": 10 * time.Second,
}

// Load resolves each key from the environment first, then config.toml in
// the working directory or /app, then the defaults above.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	db := c.Database
	switch db.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", db.Driver)
	}
	switch {
	case db.MaxOpenConns <= 0:
		return errors.New("database.max_open_conns must be positive")
	case db.MaxIdleConns < 0:
		return errors.New("database.max_idle_conns cannot be negative")
	case db.MaxIdleConns > db.MaxOpenConns:
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			db.MaxIdleConns, db.MaxOpenConns)
	}

	if c.App.Env == "production" {
		switch {
		case db.Driver != "postgres":
			return errors.New("database.driver must be postgres in production")
		case db.Password == "":
			return errors.New("database.password is required in production")
		case db.SSLMode == "disable":
			return errors.New("database.sslmode cannot be 'disable' in production")
		}
	}

	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %g", r)
	}

	a := c.Attribution
	if a.QueryTimeout < 0 {
		return errors.New("attribution.query_timeout cannot be negative")
	}
	if a.MaxSyntheticDuration > 24*time.Hour {
		return fmt.Errorf("attribution.max_synthetic_duration cannot exceed 24h, got %s", a.MaxSyntheticDuration)
	}

	switch c.ReportCache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("report_cache.backend must be memory or redis, got %q", c.ReportCache.Backend)
	}
	if c.ReportCache.MaxEntries < 0 {
		return errors.New("report_cache.max_entries cannot be negative")
	}
	if c.Kafka.Enabled && c.Kafka.Topic == "" {
		return errors.New("kafka.topic is required when kafka is enabled")
	}
	return nil
}

// DSN is the sqlite path, or a postgres URL with escaped credentials.
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}
