// Package config loads the catalog service configuration from environment
// variables, applies defaults and validates everything on startup so a
// misconfigured deployment fails before it serves a request.
package config

import (
	"net"
	"strconv"
	"time"
)

// Catalog source kinds.
const (
	SourceNone     = "none"
	SourceFile     = "file"
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Catalog  CatalogConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds query requests; uploads use Upload.Timeout.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// CatalogConfig says where the catalog comes from and how it is ingested.
type CatalogConfig struct {
	// Source is one of none, file, http, postgres or sqlite (default: file)
	Source string `env:"CATALOG_SOURCE" default:"file"`

	// CSVPath is read when Source is file
	CSVPath string `env:"CATALOG_CSV_PATH" default:"data/catalog.csv"`

	// URL is fetched when Source is http
	URL        string `env:"CATALOG_URL"`
	FetchToken string `env:"CATALOG_FETCH_TOKEN"` // sent as a bearer token

	FetchTimeout time.Duration `env:"CATALOG_FETCH_TIMEOUT" default:"30s"`
	FetchRetries int           `env:"CATALOG_FETCH_RETRIES" default:"3"`
	RetryWait    time.Duration `env:"CATALOG_RETRY_WAIT" default:"1s"`
	RetryMaxWait time.Duration `env:"CATALOG_RETRY_MAX_WAIT" default:"10s"`

	// LoadTimeout bounds one complete load, retries included
	LoadTimeout time.Duration `env:"CATALOG_LOAD_TIMEOUT" default:"2m"`

	// RefreshInterval reloads the source periodically; 0 disables
	RefreshInterval time.Duration `env:"CATALOG_REFRESH_INTERVAL" default:"0s"`

	// SnapshotPath, when set, keeps a SQLite copy of the last good catalog.
	// It is also the file read when Source is sqlite.
	SnapshotPath string `env:"CATALOG_SNAPSHOT_PATH"`

	// ListSeparator splits materials and certifications; empty splits on
	// whitespace
	ListSeparator string `env:"CATALOG_LIST_SEPARATOR"`

	MaxWarnings int `env:"CATALOG_MAX_WARNINGS" default:"500"`
}

// DatabaseConfig holds the Postgres catalog datastore settings.
type DatabaseConfig struct {
	// URL is required when the catalog source is postgres
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UploadConfig holds catalog upload settings.
type UploadConfig struct {
	// MaxFileSize is the largest accepted upload in bytes (default: 50MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent bounds ingestions running at once, uploads and reloads
	// together (default: 2)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long to wait for an ingestion slot (default: 10s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"10s"`

	// Timeout bounds a single upload request (default: 5m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// UploadLimit is requests per minute for upload and reload (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey protects upload and reload (default: true)
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"true"`
	APIKeys       []string `env:"API_KEYS"`

	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// forwarding headers are honored
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
