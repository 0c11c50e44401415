// Package config loads server configuration from an optional config.yaml
// with environment variable overrides.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/spector-app/bulkedit/internal/db"
)

// SnapshotBackend selects where edit snapshots are stored.
type SnapshotBackend string

const (
	SnapshotBackendPostgres SnapshotBackend = "postgres"
	SnapshotBackendFile     SnapshotBackend = "file"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig
	Database db.Config
	Shopify  ShopifyConfig
	Executor ExecutorConfig
	Snapshot SnapshotConfig
}

type ServerConfig struct {
	Port           int
	AllowedOrigins []string
	MigrationsPath string
}

type ShopifyConfig struct {
	ShopDomain string
	Token      string
	APIVersion string
}

type ExecutorConfig struct {
	ReadGroupSize int
}

type SnapshotConfig struct {
	Backend SnapshotBackend
	Dir     string
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000"},
			MigrationsPath: "migrations",
		},
		Database: db.DefaultConfig(),
		Shopify: ShopifyConfig{
			APIVersion: "2024-07",
		},
		Executor: ExecutorConfig{
			ReadGroupSize: 10,
		},
		Snapshot: SnapshotConfig{
			Backend: SnapshotBackendPostgres,
			Dir:     "snapshots",
		},
	}
}

// Load reads config.yaml from the given directory, when present, and
// applies environment overrides like BULKEDIT_DATABASE.HOST or
// BULKEDIT_SHOPIFY.TOKEN.
func Load(configPath string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("BULKEDIT")

	v.BindEnv("server.port")
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("shopify.domain")
	v.BindEnv("shopify.token")
	v.BindEnv("shopify.api_version")
	v.BindEnv("snapshot.backend")
	v.BindEnv("snapshot.dir")

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("server.migrations_path") {
		cfg.Server.MigrationsPath = v.GetString("server.migrations_path")
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}

	if v.IsSet("shopify.domain") {
		cfg.Shopify.ShopDomain = v.GetString("shopify.domain")
	}
	if v.IsSet("shopify.token") {
		cfg.Shopify.Token = v.GetString("shopify.token")
	}
	if v.IsSet("shopify.api_version") {
		cfg.Shopify.APIVersion = v.GetString("shopify.api_version")
	}

	if v.IsSet("executor.read_group_size") {
		cfg.Executor.ReadGroupSize = v.GetInt("executor.read_group_size")
	}

	if v.IsSet("snapshot.backend") {
		backend := SnapshotBackend(v.GetString("snapshot.backend"))
		switch backend {
		case SnapshotBackendPostgres, SnapshotBackendFile:
			cfg.Snapshot.Backend = backend
		default:
			return Config{}, fmt.Errorf("unknown snapshot backend %q", backend)
		}
	}
	if v.IsSet("snapshot.dir") {
		cfg.Snapshot.Dir = v.GetString("snapshot.dir")
	}

	return cfg, nil
}
