package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goccy/go-yaml"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// DevJWTSecret is the signing secret used when none is configured.
const DevJWTSecret = "smart-todo-dev-secret-change-me"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Auth     AuthConfig    `yaml:"auth"`
	Storage  StorageConfig `yaml:"storage"`
	Tracing  TracingConfig `yaml:"tracing"`
	LogLevel string        `yaml:"log_level" env:"LOG_LEVEL"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host" env:"SERVER_HOST"`
	Port int    `yaml:"port" env:"SERVER_PORT"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	JWTSecret       string    `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	TokenTTLMinutes int       `yaml:"token_ttl_minutes" env:"AUTH_TOKEN_TTL_MINUTES"`
	SecretRef       SecretRef `yaml:"secret_ref"`
}

// SecretRef points at a Kubernetes Secret holding the JWT signing secret.
// It is ignored when Name is empty.
type SecretRef struct {
	Kubeconfig string `yaml:"kubeconfig" env:"AUTH_SECRET_REF_KUBECONFIG"`
	Namespace  string `yaml:"namespace" env:"AUTH_SECRET_REF_NAMESPACE"`
	Name       string `yaml:"name" env:"AUTH_SECRET_REF_NAME"`
	Key        string `yaml:"key" env:"AUTH_SECRET_REF_KEY"`
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Driver        string `yaml:"driver" env:"STORAGE_DRIVER"`
	DataDir       string `yaml:"data_dir" env:"STORAGE_DATA_DIR"`
	DSN           string `yaml:"dsn" env:"STORAGE_DSN"`
	MongoURI      string `yaml:"mongo_uri" env:"STORAGE_MONGO_URI"`
	MongoDatabase string `yaml:"mongo_database" env:"STORAGE_MONGO_DATABASE"`
}

// TracingConfig represents OpenTelemetry export configuration
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" env:"TRACING_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"TRACING_SERVICE_NAME"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Auth: AuthConfig{
			JWTSecret:       DevJWTSecret,
			TokenTTLMinutes: 30,
			SecretRef: SecretRef{
				Namespace: "default",
				Key:       "jwt-secret",
			},
		},
		Storage: StorageConfig{
			Driver:        DriverFile,
			DataDir:       "./data",
			MongoDatabase: "todo_db",
		},
		Tracing: TracingConfig{
			ServiceName: "smart-todo-api",
		},
		LogLevel: "info",
	}
}

// Load loads configuration from a YAML file, then applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Auth.TokenTTLMinutes < 1 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive, got %d", c.Auth.TokenTTLMinutes)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" && c.Auth.SecretRef.Name == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverFile:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("storage.data_dir is required for driver %q", c.Storage.Driver)
		}
	case DriverSQLite, DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for driver %q", c.Storage.Driver)
		}
	case DriverMongo:
		if c.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required for driver %q", c.Storage.Driver)
		}
		if c.Storage.MongoDatabase == "" {
			return fmt.Errorf("storage.mongo_database is required for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// TokenTTL returns the access token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Save saves configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// WriteDefault writes the default configuration to path. An existing file
// is left alone and reported as an error.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config: %w", err)
	}
	return DefaultConfig().Save(path)
}
