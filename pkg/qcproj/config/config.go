package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/qgl-content/pkg/qcproj"
	"github.com/tendant/qgl-content/pkg/qcproj/repo/memory"
	repopg "github.com/tendant/qgl-content/pkg/qcproj/repo/postgres"
	fsstorage "github.com/tendant/qgl-content/pkg/qcproj/storage/fs"
	memorystorage "github.com/tendant/qgl-content/pkg/qcproj/storage/memory"
	s3storage "github.com/tendant/qgl-content/pkg/qcproj/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		Storage: StorageBackendConfig{
			Type:   "memory",
			Config: map[string]interface{}{},
		},
		EnableEventLogging:     true,
		EnableStringContent:    true,
		MaxRecentEntries:       qcproj.DefaultMaxRecentEntries,
		MaxFutureAccessEntries: qcproj.DefaultMaxFutureAccessEntries,
	}
}

// ServerConfig represents configuration for a qcproj service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Access list database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Project file storage
	Storage StorageBackendConfig

	// Service options
	EnableEventLogging     bool
	EnableStringContent    bool
	MaxRecentEntries       int
	MaxFutureAccessEntries int
}

// StorageBackendConfig represents configuration for the file store
type StorageBackendConfig struct {
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.Storage.Type {
	case "memory":
	case "fs":
		if getString(c.Storage.Config, "base_dir", "") == "" {
			return errors.New("fs storage requires base_dir")
		}
	case "s3":
		if getString(c.Storage.Config, "bucket", "") == "" {
			return errors.New("s3 storage requires bucket")
		}
	default:
		return fmt.Errorf("unsupported storage backend type: %s", c.Storage.Type)
	}

	if c.MaxRecentEntries < 1 {
		return fmt.Errorf("max_recent_entries must be positive, got: %d", c.MaxRecentEntries)
	}
	if c.MaxFutureAccessEntries < 2 {
		return fmt.Errorf("max_future_access_entries must be at least 2, got: %d", c.MaxFutureAccessEntries)
	}

	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService() (qcproj.Service, error) {
	store, err := c.buildStorageBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend %s: %w", c.Storage.Type, err)
	}

	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	options := []qcproj.Option{
		qcproj.WithFileStore(store),
		qcproj.WithAccessRepository(repo),
		qcproj.WithMaxRecentEntries(c.MaxRecentEntries),
		qcproj.WithMaxFutureAccessEntries(c.MaxFutureAccessEntries),
	}

	if c.EnableStringContent {
		options = append(options, qcproj.WithExtension(qcproj.NewStringExtension(store)))
	}

	if c.EnableEventLogging {
		options = append(options, qcproj.WithEventSink(qcproj.NewLoggingEventSink(slog.Default())))
	} else {
		options = append(options, qcproj.WithEventSink(qcproj.NewNoopEventSink()))
	}

	return qcproj.New(options...)
}

// buildRepository creates an AccessRepository based on the configuration
func (c *ServerConfig) buildRepository() (qcproj.AccessRepository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, errors.New("database_url is required for postgres")
		}
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		repo := repopg.NewWithPool(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// PingPostgres verifies connectivity to Postgres.
func PingPostgres(databaseURL string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// buildStorageBackend creates a FileStore based on the backend configuration
func (c *ServerConfig) buildStorageBackend() (qcproj.FileStore, error) {
	config := c.Storage.Config
	switch c.Storage.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir: getString(config, "base_dir", "./data/projects"),
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 getString(config, "region", "us-east-1"),
			Bucket:                 getString(config, "bucket", ""),
			Prefix:                 getString(config, "prefix", ""),
			AccessKeyID:            getString(config, "access_key_id", ""),
			SecretAccessKey:        getString(config, "secret_access_key", ""),
			Endpoint:               getString(config, "endpoint", ""),
			UsePathStyle:           getBool(config, "use_path_style", false),
			EnableSSE:              getBool(config, "enable_sse", false),
			SSEAlgorithm:           getString(config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            getString(config, "sse_kms_key_id", ""),
			CreateBucketIfNotExist: getBool(config, "create_bucket_if_not_exist", false),
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.Storage.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}
