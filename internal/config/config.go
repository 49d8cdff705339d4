package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server      ServerConfig
	App         AppConfig
	Remote      RemoteConfig
	Catalog     CatalogConfig
	Cache       CacheConfig
	Annotations AnnotationsConfig
	Journal     JournalConfig
	Engine      EngineConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"127.0.0.1"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"guardian-inventory"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	APIKey      string `envconfig:"APP_API_KEY" default:""` // Optional key for the local API
	CORSOrigins string `envconfig:"APP_CORS_ORIGINS" default:"*"`
}

// RemoteConfig holds settings for the authenticated platform proxy.
type RemoteConfig struct {
	BaseURL      string        `envconfig:"REMOTE_BASE_URL" default:"http://localhost:3000"`
	APIKey       string        `envconfig:"REMOTE_API_KEY" default:""`
	AccessToken  string        `envconfig:"REMOTE_ACCESS_TOKEN" default:""`
	MembershipID string        `envconfig:"REMOTE_MEMBERSHIP_ID" default:"default"`
	Timeout      time.Duration `envconfig:"REMOTE_TIMEOUT" default:"60s"`
}

// CatalogConfig holds reference data store settings.
type CatalogConfig struct {
	Store      string `envconfig:"CATALOG_STORE" default:"sqlite"` // sqlite, redis, or memory
	Path       string `envconfig:"CATALOG_DB_PATH" default:"./data/catalog.db"`
	KeyPrefix  string `envconfig:"CATALOG_KEY_PREFIX" default:"guardian:catalog"`
	Generation string `envconfig:"CATALOG_GENERATION" default:""`
	Preload    string `envconfig:"CATALOG_PRELOAD" default:"DestinyInventoryItemDefinition,DestinyStatDefinition"`
}

// CacheConfig holds Redis settings for the shared catalog tier.
type CacheConfig struct {
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// AnnotationsConfig selects where tags and notes are stored.
type AnnotationsConfig struct {
	Backend string `envconfig:"ANNOTATIONS_BACKEND" default:"remote"` // remote, mysql, postgres, or mongodb
	// MySQL settings
	MySQLHost     string `envconfig:"ANNOTATIONS_MYSQL_HOST" default:"localhost"`
	MySQLPort     int    `envconfig:"ANNOTATIONS_MYSQL_PORT" default:"3306"`
	MySQLName     string `envconfig:"ANNOTATIONS_MYSQL_NAME" default:"guardian"`
	MySQLUser     string `envconfig:"ANNOTATIONS_MYSQL_USER" default:"root"`
	MySQLPassword string `envconfig:"ANNOTATIONS_MYSQL_PASS" default:""`
	// PostgreSQL settings
	PostgresHost     string `envconfig:"ANNOTATIONS_PG_HOST" default:"localhost"`
	PostgresPort     int    `envconfig:"ANNOTATIONS_PG_PORT" default:"5432"`
	PostgresName     string `envconfig:"ANNOTATIONS_PG_NAME" default:"guardian"`
	PostgresUser     string `envconfig:"ANNOTATIONS_PG_USER" default:"postgres"`
	PostgresPassword string `envconfig:"ANNOTATIONS_PG_PASS" default:""`
	PostgresSSLMode  string `envconfig:"ANNOTATIONS_PG_SSLMODE" default:"disable"`
	// MongoDB settings
	MongoURI        string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase   string `envconfig:"MONGODB_DATABASE" default:"guardian"`
	MongoCollection string `envconfig:"MONGODB_COLLECTION" default:"user_metadata"`
}

// JournalConfig selects where finished transfers are recorded.
type JournalConfig struct {
	Backend         string `envconfig:"TRANSFER_LOG_BACKEND" default:"sqlite"` // sqlite, mongodb, or none
	Path            string `envconfig:"TRANSFER_LOG_DB_PATH" default:"./data/catalog.db"`
	MongoCollection string `envconfig:"MONGODB_TRANSFER_COLLECTION" default:"transfer_logs"`
}

// EngineConfig holds inventory engine settings.
type EngineConfig struct {
	ResyncAfterTransfer bool          `envconfig:"ENGINE_RESYNC_AFTER_TRANSFER" default:"true"`
	RefreshInterval     time.Duration `envconfig:"ENGINE_REFRESH_INTERVAL" default:"30s"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PreloadTables returns the configured preload tables.
func (c *CatalogConfig) PreloadTables() []string {
	return splitList(c.Preload)
}

// AllowedOrigins returns the configured CORS origins.
func (a *AppConfig) AllowedOrigins() []string {
	return splitList(a.CORSOrigins)
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// MySQLDSN returns the MySQL data source name.
func (a *AnnotationsConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		a.MySQLUser, a.MySQLPassword, a.MySQLHost, a.MySQLPort, a.MySQLName)
}

// PostgresDSN returns the PostgreSQL connection string.
func (a *AnnotationsConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		a.PostgresUser, a.PostgresPassword, a.PostgresHost, a.PostgresPort, a.PostgresName, a.PostgresSSLMode)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	switch cfg.Catalog.Store {
	case "sqlite", "redis", "memory":
	default:
		return nil, fmt.Errorf("invalid CATALOG_STORE %q", cfg.Catalog.Store)
	}
	switch cfg.Annotations.Backend {
	case "remote", "mysql", "postgres", "mongodb":
	default:
		return nil, fmt.Errorf("invalid ANNOTATIONS_BACKEND %q", cfg.Annotations.Backend)
	}
	switch cfg.Journal.Backend {
	case "sqlite", "mongodb", "none":
	default:
		return nil, fmt.Errorf("invalid TRANSFER_LOG_BACKEND %q", cfg.Journal.Backend)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
