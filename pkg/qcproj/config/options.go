package config

import (
	"fmt"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the access list database
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithMemoryStorage keeps project files in memory
func WithMemoryStorage() Option {
	return func(c *ServerConfig) error {
		c.Storage = StorageBackendConfig{Type: "memory", Config: map[string]interface{}{}}
		return nil
	}
}

// WithFilesystemStorage keeps project files under baseDir
func WithFilesystemStorage(baseDir string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.Storage = StorageBackendConfig{
			Type:   "fs",
			Config: map[string]interface{}{"base_dir": baseDir},
		}
		return nil
	}
}

// WithS3Storage keeps project files in an S3 bucket
func WithS3Storage(bucket, region, prefix string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}
		cfg := map[string]interface{}{"bucket": bucket, "region": region}
		if prefix != "" {
			cfg["prefix"] = prefix
		}
		c.Storage = StorageBackendConfig{Type: "s3", Config: cfg}
		return nil
	}
}

// WithEventLogging enables or disables the logging event sink
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithStringContent enables or disables the built-in String extension
func WithStringContent(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableStringContent = enabled
		return nil
	}
}

// WithAccessListLimits sets the recent and future access list sizes
func WithAccessListLimits(maxRecent, maxFuture int) Option {
	return func(c *ServerConfig) error {
		if maxRecent < 1 {
			return fmt.Errorf("max recent entries must be positive, got: %d", maxRecent)
		}
		if maxFuture < 2 {
			return fmt.Errorf("max future access entries must be at least 2, got: %d", maxFuture)
		}
		c.MaxRecentEntries = maxRecent
		c.MaxFutureAccessEntries = maxFuture
		return nil
	}
}
