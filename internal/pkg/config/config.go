package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Debug sink names accepted in debug.sinks.
const (
	SinkNone     = "none"
	SinkFile     = "file"
	SinkValkey   = "valkey"
	SinkPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Traffic   TrafficConfig   `mapstructure:"traffic"`
	Router    RouterConfig    `mapstructure:"router"`
	Debug     DebugConfig     `mapstructure:"debug"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	ReadTimeout    int `mapstructure:"read_timeout"`
	WriteTimeout   int `mapstructure:"write_timeout"`
	RequestTimeout int `mapstructure:"request_timeout"`
}

// TrafficConfig configures the TomTom incident details client.
type TrafficConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RouterConfig configures the Valhalla routing engine client.
type RouterConfig struct {
	URL             string        `mapstructure:"url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout"`
	Precision       int           `mapstructure:"precision"`
}

// DebugConfig selects where the last outgoing routing payload is kept.
type DebugConfig struct {
	Sinks     []string      `mapstructure:"sinks"`
	FilePath  string        `mapstructure:"file_path"`
	ValkeyKey string        `mapstructure:"valkey_key"`
	TTL       int           `mapstructure:"ttl"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether sink is listed in debug.sinks.
func (d DebugConfig) Enabled(sink string) bool {
	for _, s := range d.Sinks {
		if strings.EqualFold(strings.TrimSpace(s), sink) {
			return true
		}
	}
	return false
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.request_timeout", 25)
	v.SetDefault("traffic.base_url", "https://api.tomtom.com")
	v.SetDefault("traffic.api_key", "")
	v.SetDefault("traffic.language", "en-GB")
	v.SetDefault("traffic.timeout", "5s")
	v.SetDefault("router.url", "http://localhost:8002/route")
	v.SetDefault("router.timeout", "15s")
	v.SetDefault("router.max_idle_conns", 10)
	v.SetDefault("router.idle_conn_timeout", "30s")
	v.SetDefault("router.precision", 6)
	v.SetDefault("debug.sinks", []string{SinkNone})
	v.SetDefault("debug.file_path", "payload_file.txt")
	v.SetDefault("debug.valkey_key", "routegate:debug:last_payload")
	v.SetDefault("debug.ttl", 3600)
	v.SetDefault("debug.timeout", "500ms")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "routegate")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "routegate")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: ROUTEGATE_TRAFFIC_API_KEY → traffic.api_key
	v.SetEnvPrefix("ROUTEGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Debug.Sinks = splitSinks(cfg.Debug.Sinks)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// splitSinks accepts both a YAML list and a comma separated env value.
func splitSinks(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Warnings reports settings that load fine but leave a feature unusable.
// The API logs them at startup; tools that never call the traffic service
// ignore them.
func (c *Config) Warnings() []string {
	var out []string
	if strings.TrimSpace(c.Traffic.APIKey) == "" {
		out = append(out, "traffic.api_key is empty: every live_traffic=true request will be rejected by the traffic service")
	}
	return out
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}
	if _, err := url.ParseRequestURI(c.Traffic.BaseURL); err != nil {
		errs = append(errs, fmt.Sprintf("traffic.base_url is invalid: %v", err))
	}
	if c.Traffic.Timeout <= 0 {
		errs = append(errs, "traffic.timeout must be positive")
	}
	if _, err := url.ParseRequestURI(c.Router.URL); err != nil {
		errs = append(errs, fmt.Sprintf("router.url is invalid: %v", err))
	}
	if c.Router.Timeout <= 0 {
		errs = append(errs, "router.timeout must be positive")
	}
	if c.Router.Precision < 1 || c.Router.Precision > 10 {
		errs = append(errs, fmt.Sprintf("router.precision must be 1-10, got %d", c.Router.Precision))
	}
	for _, s := range c.Debug.Sinks {
		switch s {
		case SinkNone, SinkFile, SinkValkey, SinkPostgres:
		default:
			errs = append(errs, fmt.Sprintf("debug.sinks: unknown sink %q", s))
		}
	}
	if c.Debug.Enabled(SinkFile) && c.Debug.FilePath == "" {
		errs = append(errs, "debug.file_path is required for the file sink")
	}
	if c.Debug.Enabled(SinkValkey) && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required for the valkey sink")
	}
	if c.Debug.Enabled(SinkPostgres) {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required for the postgres sink")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required for the postgres sink")
		}
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats.enabled is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
