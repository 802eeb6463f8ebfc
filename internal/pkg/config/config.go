package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Editor    EditorConfig    `mapstructure:"editor"`
	Drafts    DraftsConfig    `mapstructure:"drafts"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EditorConfig tunes editor sessions.
type EditorConfig struct {
	SyncDebounceMs int     `mapstructure:"sync_debounce_ms"`
	HistoryLimit   int     `mapstructure:"history_limit"`
	WarnDistanceKm float64 `mapstructure:"warn_distance_km"`
	// SessionIdleMinutes closes sessions nobody touched for that long.
	SessionIdleMinutes int `mapstructure:"session_idle_minutes"`
}

func (e EditorConfig) SyncDelay() time.Duration {
	return time.Duration(e.SyncDebounceMs) * time.Millisecond
}

func (e EditorConfig) SessionIdle() time.Duration {
	return time.Duration(e.SessionIdleMinutes) * time.Minute
}

// Draft backends.
const (
	DraftsValkey = "valkey"
	DraftsSQLite = "sqlite"
	DraftsMemory = "memory"
)

type DraftsConfig struct {
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
	TTLHours   int    `mapstructure:"ttl_hours"`
}

func (d DraftsConfig) TTL() time.Duration {
	return time.Duration(d.TTLHours) * time.Hour
}

type GeocoderConfig struct {
	URL        string `mapstructure:"url"`
	TimeoutMs  int    `mapstructure:"timeout_ms"`
	DebounceMs int    `mapstructure:"debounce_ms"`
	MinQuery   int    `mapstructure:"min_query"`
	Limit      int    `mapstructure:"limit"`
}

func (g GeocoderConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutMs) * time.Millisecond
}

func (g GeocoderConfig) Debounce() time.Duration {
	return time.Duration(g.DebounceMs) * time.Millisecond
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "planpresso")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "planpresso")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("editor.sync_debounce_ms", 500)
	v.SetDefault("editor.history_limit", 50)
	v.SetDefault("editor.warn_distance_km", 5000)
	v.SetDefault("editor.session_idle_minutes", 120)
	v.SetDefault("drafts.backend", DraftsValkey)
	v.SetDefault("drafts.sqlite_path", "data/drafts.db")
	v.SetDefault("drafts.ttl_hours", 168)
	v.SetDefault("geocoder.url", "https://photon.komoot.io/api/")
	v.SetDefault("geocoder.timeout_ms", 5000)
	v.SetDefault("geocoder.debounce_ms", 300)
	v.SetDefault("geocoder.min_query", 2)
	v.SetDefault("geocoder.limit", 5)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PLANPRESSO_DRAFTS_BACKEND → drafts.backend
	v.SetEnvPrefix("PLANPRESSO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	switch c.Drafts.Backend {
	case DraftsValkey:
		if c.Valkey.Addr == "" {
			errs = append(errs, "valkey.addr is required for the valkey draft backend")
		}
	case DraftsSQLite:
		if c.Drafts.SQLitePath == "" {
			errs = append(errs, "drafts.sqlite_path is required for the sqlite draft backend")
		}
	case DraftsMemory:
	default:
		errs = append(errs, fmt.Sprintf("drafts.backend must be valkey, sqlite or memory, got %q", c.Drafts.Backend))
	}
	if c.Drafts.TTLHours <= 0 {
		errs = append(errs, "drafts.ttl_hours must be positive")
	}
	if c.Editor.SyncDebounceMs <= 0 {
		errs = append(errs, "editor.sync_debounce_ms must be positive")
	}
	if c.Editor.HistoryLimit < 2 {
		errs = append(errs, fmt.Sprintf("editor.history_limit must be at least 2, got %d", c.Editor.HistoryLimit))
	}
	if c.Editor.WarnDistanceKm <= 0 {
		errs = append(errs, "editor.warn_distance_km must be positive")
	}
	if c.Geocoder.URL == "" {
		errs = append(errs, "geocoder.url is required")
	}
	if c.Geocoder.MinQuery < 1 {
		errs = append(errs, "geocoder.min_query must be at least 1")
	}
	if c.Geocoder.Limit <= 0 || c.Geocoder.Limit > 50 {
		errs = append(errs, fmt.Sprintf("geocoder.limit must be 1-50, got %d", c.Geocoder.Limit))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
