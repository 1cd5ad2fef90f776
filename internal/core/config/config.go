package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Sentry    SentryConfig    `koanf:"sentry"`
	Keycloak  KeycloakConfig  `koanf:"keycloak"`
	CDQ       CDQConfig       `koanf:"cdq"`
	Ingestion IngestionConfig `koanf:"ingestion"`
}

type ServerConfig struct {
	Port            int    `koanf:"port"`
	Host            string `koanf:"host"`
	Mode            string `koanf:"mode"` // debug | release
	CORSAllowOrigin string `koanf:"cors_allow_origin"`
}

type DatabaseConfig struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	Name         string `koanf:"name"`
	SSLMode      string `koanf:"ssl_mode"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type SentryConfig struct {
	DSN         string `koanf:"dsn"`
	Environment string `koanf:"environment"`
	Release     string `koanf:"release"`
}

type KeycloakConfig struct {
	Realm          string `koanf:"realm"`
	ClientResource string `koanf:"client_resource"`
	ClientRole     string `koanf:"client_role"`
	AuthURL        string `koanf:"auth_url"`

	// PublicKey is the realm's RSA public key in PEM form. When empty it is
	// fetched from AuthURL at startup.
	PublicKey string `koanf:"public_key"`
}

type CDQConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
}

type IngestionConfig struct {
	WorkerAPIKey   string `koanf:"worker_api_key"`
	PurgeQueueSize int    `koanf:"purge_queue_size"`
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}
	if strings.TrimSpace(c.Server.CORSAllowOrigin) == "" {
		return fmt.Errorf("server.cors_allow_origin is required")
	}

	if strings.TrimSpace(c.Database.Host) == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database.port %d (must be 1-65535)", c.Database.Port)
	}
	if strings.TrimSpace(c.Database.User) == "" {
		return fmt.Errorf("database.user is required")
	}
	if strings.TrimSpace(c.Database.Name) == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}

	if strings.TrimSpace(c.Keycloak.Realm) == "" {
		return fmt.Errorf("keycloak.realm is required")
	}
	if strings.TrimSpace(c.Keycloak.ClientResource) == "" {
		return fmt.Errorf("keycloak.client_resource is required")
	}
	if strings.TrimSpace(c.Keycloak.ClientRole) == "" {
		return fmt.Errorf("keycloak.client_role is required")
	}
	if strings.TrimSpace(c.Keycloak.AuthURL) == "" && strings.TrimSpace(c.Keycloak.PublicKey) == "" {
		return fmt.Errorf("one of keycloak.auth_url or keycloak.public_key is required")
	}

	if strings.TrimSpace(c.CDQ.APIKey) == "" {
		return fmt.Errorf("cdq.api_key is required")
	}
	if strings.TrimSpace(c.Ingestion.WorkerAPIKey) == "" {
		return fmt.Errorf("ingestion.worker_api_key is required")
	}
	if c.Ingestion.PurgeQueueSize <= 0 {
		return fmt.Errorf("ingestion.purge_queue_size must be > 0")
	}

	return nil
}

// Load parses config from defaults, an optional yaml file and FRAUDAPI_
// environment variables, then validates the result.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                8080,
		"server.host":                "0.0.0.0",
		"server.mode":                "release",
		"server.cors_allow_origin":   "http://localhost:3000",
		"database.host":              "localhost",
		"database.port":              5432,
		"database.user":              "dashboard",
		"database.password":          "",
		"database.name":              "dashboard",
		"database.ssl_mode":          "disable",
		"database.max_open_conns":    25,
		"database.max_idle_conns":    25,
		"database.auto_migrate":      true,
		"sentry.dsn":                 "",
		"sentry.environment":         "development",
		"sentry.release":             "",
		"keycloak.realm":             "catenax",
		"keycloak.client_resource":   "catenax-api",
		"keycloak.client_role":       "user",
		"keycloak.auth_url":          "http://localhost:8180/auth",
		"keycloak.public_key":        "",
		"cdq.base_url":               "https://api.cdq.com",
		"cdq.api_key":                "",
		"ingestion.worker_api_key":   "",
		"ingestion.purge_queue_size": 16,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("FRAUDAPI_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "FRAUDAPI_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
