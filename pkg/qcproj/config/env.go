package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// EnvConfig lists the environment variables read by WithEnv. Variables that
// are not set leave the current configuration untouched.
type EnvConfig struct {
	Port        string `env:"PORT" env-description:"HTTP server port"`
	Environment string `env:"ENVIRONMENT" env-description:"development, production or testing"`

	DatabaseURL string `env:"DATABASE_URL" env-description:"'memory' or postgres(ql)://... for the access lists"`
	StorageURL  string `env:"STORAGE_URL" env-description:"memory://, file:///path or s3://bucket?region=..&endpoint=.."`

	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-description:"S3 access key"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-description:"S3 secret key"`
	AWSRegion          string `env:"AWS_REGION" env-description:"S3 region"`
	AWSEndpoint        string `env:"AWS_S3_ENDPOINT" env-description:"S3-compatible endpoint"`

	EventLogging           bool `env:"EVENT_LOGGING" env-description:"log project lifecycle events"`
	StringContent          bool `env:"STRING_CONTENT" env-description:"install the built-in String extension"`
	MaxRecentEntries       int  `env:"MAX_RECENT_ENTRIES" env-description:"recent project list size"`
	MaxFutureAccessEntries int  `env:"MAX_FUTURE_ACCESS_ENTRIES" env-description:"future access list size"`
}

// WithEnv applies environment variable overrides.
//
// Database:
//
//	DATABASE_URL - "memory" or a "postgres://" / "postgresql://" connection string
//
// Storage:
//
//	STORAGE_URL - one of:
//	              - "memory://" - In-memory storage
//	              - "file:///path/to/data" - Filesystem storage
//	              - "s3://bucket/prefix?region=us-east-1&endpoint=http://localhost:9000" - S3 storage
func WithEnv() Option {
	return func(c *ServerConfig) error {
		env := EnvConfig{
			Port:                   c.Port,
			Environment:            c.Environment,
			EventLogging:           c.EnableEventLogging,
			StringContent:          c.EnableStringContent,
			MaxRecentEntries:       c.MaxRecentEntries,
			MaxFutureAccessEntries: c.MaxFutureAccessEntries,
		}
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		c.Port = env.Port
		c.Environment = env.Environment
		c.EnableEventLogging = env.EventLogging
		c.EnableStringContent = env.StringContent
		c.MaxRecentEntries = env.MaxRecentEntries
		c.MaxFutureAccessEntries = env.MaxFutureAccessEntries

		if err := applyDatabaseURL(env.DatabaseURL, c); err != nil {
			return err
		}
		return applyStorageURL(env, c)
	}
}

// applyDatabaseURL applies database configuration from a URL
func applyDatabaseURL(dbURL string, c *ServerConfig) error {
	switch {
	case dbURL == "":
		return nil
	case dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
	}
	return nil
}

// applyStorageURL applies storage configuration from STORAGE_URL
func applyStorageURL(env EnvConfig, c *ServerConfig) error {
	raw := env.StorageURL
	switch {
	case raw == "":
		return nil
	case raw == "memory" || raw == "memory://":
		c.Storage = StorageBackendConfig{Type: "memory", Config: map[string]interface{}{}}
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}

	switch u.Scheme {
	case "file":
		dir := u.Path
		if u.Host != "" {
			dir = u.Host + dir
		}
		if dir == "" {
			return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
		}
		c.Storage = StorageBackendConfig{
			Type:   "fs",
			Config: map[string]interface{}{"base_dir": dir},
		}
		return nil

	case "s3":
		if u.Host == "" {
			return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
		}
		q := u.Query()
		cfg := map[string]interface{}{
			"bucket": u.Host,
			"region": "us-east-1",
		}
		if prefix := strings.Trim(u.Path, "/"); prefix != "" {
			cfg["prefix"] = prefix
		}
		if env.AWSRegion != "" {
			cfg["region"] = env.AWSRegion
		}
		if v := q.Get("region"); v != "" {
			cfg["region"] = v
		}
		if env.AWSEndpoint != "" {
			cfg["endpoint"] = env.AWSEndpoint
			cfg["use_path_style"] = true
		}
		if v := q.Get("endpoint"); v != "" {
			cfg["endpoint"] = v
			cfg["use_path_style"] = true
		}
		if env.AWSAccessKeyID != "" {
			cfg["access_key_id"] = env.AWSAccessKeyID
		}
		if env.AWSSecretAccessKey != "" {
			cfg["secret_access_key"] = env.AWSSecretAccessKey
		}
		c.Storage = StorageBackendConfig{Type: "s3", Config: cfg}
		return nil
	}

	return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", raw)
}
