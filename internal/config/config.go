package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Metadata backends.
const (
	BackendYAML     = "yaml"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	Registry RegistryConfig
	SQLite   SQLiteConfig
	Database DatabaseConfig
	Server   ServerConfig
	Logger   LoggerConfig
	Watch    WatchConfig
	Tracing  TracingConfig
}

type RegistryConfig struct {
	StoragePath       string
	MetadataFile      string
	Backend           string
	BestMetric        string
	BestLowerIsBetter bool
}

type SQLiteConfig struct {
	Path string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type ServerConfig struct {
	Host string
	Port int
	// AllowSourcePath enables POST /models, which copies a file from the
	// server's own filesystem.
	AllowSourcePath bool
}

type LoggerConfig struct {
	Level  string
	Format string
}

type WatchConfig struct {
	Enabled  bool
	Debounce time.Duration
}

type TracingConfig struct {
	Enabled      bool
	Exporter     string
	OTLPEndpoint string
	SampleRate   float64
	ServiceName  string
}

// SetDefaults registers every key with its default value, so AutomaticEnv
// and config files can override any of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("REGISTRY_STORAGE_PATH", "./models")
	v.SetDefault("REGISTRY_METADATA_FILE", "./registry.yaml")
	v.SetDefault("REGISTRY_BACKEND", BackendYAML)
	v.SetDefault("REGISTRY_BEST_METRIC", "")
	v.SetDefault("REGISTRY_BEST_LOWER_IS_BETTER", false)
	v.SetDefault("SQLITE_PATH", "./registry.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "model_registry")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 4)
	v.SetDefault("DB_MAX_IDLE_CONNS", 1)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ALLOW_SOURCE_PATH", true)
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "text")
	v.SetDefault("WATCH_ENABLED", true)
	v.SetDefault("WATCH_DEBOUNCE", "500ms")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("TRACING_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("TRACING_SAMPLE_RATE", 1.0)
	v.SetDefault("TRACING_SERVICE_NAME", "model-artifact-registry")
}

// LoadDotEnv copies ./.env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// ReadConfigFile merges file into v when it is not empty.
func ReadConfigFile(v *viper.Viper, file string) error {
	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", file, err)
	}
	return nil
}

// Load reads .env (if present), the optional CONFIG_FILE, and the process
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if err := ReadConfigFile(v, v.GetString("CONFIG_FILE")); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	debounce, err := time.ParseDuration(v.GetString("WATCH_DEBOUNCE"))
	if err != nil {
		debounce = 500 * time.Millisecond
	}
	lifetime, err := time.ParseDuration(v.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		lifetime = 30 * time.Minute
	}

	cfg := &Config{
		Registry: RegistryConfig{
			StoragePath:       v.GetString("REGISTRY_STORAGE_PATH"),
			MetadataFile:      v.GetString("REGISTRY_METADATA_FILE"),
			Backend:           strings.ToLower(v.GetString("REGISTRY_BACKEND")),
			BestMetric:        v.GetString("REGISTRY_BEST_METRIC"),
			BestLowerIsBetter: v.GetBool("REGISTRY_BEST_LOWER_IS_BETTER"),
		},
		SQLite: SQLiteConfig{
			Path: v.GetString("SQLITE_PATH"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: lifetime,
		},
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			AllowSourcePath: v.GetBool("SERVER_ALLOW_SOURCE_PATH"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Watch: WatchConfig{
			Enabled:  v.GetBool("WATCH_ENABLED"),
			Debounce: debounce,
		},
		Tracing: TracingConfig{
			Enabled:      v.GetBool("TRACING_ENABLED"),
			Exporter:     v.GetString("TRACING_EXPORTER"),
			OTLPEndpoint: v.GetString("TRACING_OTLP_ENDPOINT"),
			SampleRate:   v.GetFloat64("TRACING_SAMPLE_RATE"),
			ServiceName:  v.GetString("TRACING_SERVICE_NAME"),
		},
	}

	switch cfg.Registry.Backend {
	case BackendYAML, BackendSQLite, BackendPostgres:
	default:
		return nil, fmt.Errorf("registry backend %q: must be one of yaml, sqlite, postgres", cfg.Registry.Backend)
	}
	return cfg, nil
}
