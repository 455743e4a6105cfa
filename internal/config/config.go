package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NewRelic NewRelicConfig `mapstructure:"new_relic"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Platform PlatformConfig `mapstructure:"platform"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string        `mapstructure:"port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	CORSOrigins []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Migrate         bool          `mapstructure:"migrate"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string `mapstructure:"app_name"`
	LicenseKey string `mapstructure:"license_key"`
	Enabled    bool   `mapstructure:"enabled"`
}

// KafkaConfig holds the trip event stream configuration. No brokers
// disables publishing.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RealtimeConfig sizes the push delivery queue.
type RealtimeConfig struct {
	QueueSize int           `mapstructure:"queue_size"`
	Workers   int           `mapstructure:"workers"`
	Heartbeat time.Duration `mapstructure:"heartbeat"`
}

// PlatformConfig holds platform-wide switches.
type PlatformConfig struct {
	MaintenanceDefault bool `mapstructure:"maintenance_default"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

var defaults = map[string]any{
	"server.port":         "8080",
	"server.read_timeout": 10 * time.Second,
	"server.cors_origins": []string{"*"},

	"db.host":     "localhost",
	"db.port":     "5432",
	"db.user":     "postgres",
	"db.password": "postgres",
	"db.name":     "dispatch",
	"db.sslmode":  "disable",

	"db.max_open_conns":     50,
	"db.max_idle_conns":     25,
	"db.conn_max_lifetime":  30 * time.Minute,
	"db.conn_max_idle_time": 5 * time.Minute,
	"db.migrate":            true,

	"redis.addr":     "localhost:6379",
	"redis.password": "",
	"redis.db":       0,

	"new_relic.app_name":    "dispatch-service",
	"new_relic.license_key": "",
	"new_relic.enabled":     false,

	"kafka.brokers": []string{},
	"kafka.topic":   "trip-events",

	"auth.jwt_secret": "",
	"auth.issuer":     "",

	"realtime.queue_size": 1024,
	"realtime.workers":    4,
	"realtime.heartbeat":  25 * time.Second,

	"platform.maintenance_default": false,

	"log.level": "info",
}

// Load reads configuration from environment variables such as SERVER_PORT
// or DB_HOST, and from the YAML file named by CONFIG_FILE when set.
// Environment variables win over the file.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("config_file", "CONFIG_FILE"); err != nil {
		return nil, err
	}
	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
