// Package config loads the viewer's settings from environment variables.
// Every setting has a default, so an empty environment serves the first
// bundle found in ./data. Validation runs on startup and reports every
// problem at once.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Source   SourceConfig
	Upload   UploadConfig
	View     ViewConfig
	Database DatabaseConfig
	Sharing  SharingConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// Read and write timeouts are extended to UPLOAD_TIMEOUT on upload routes.
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout also bounds how long in-flight loads may finish.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds every handler except uploads.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// SourceConfig selects what is loaded at startup.
type SourceConfig struct {
	// Dir is scanned for the first supported bundle when Path is unset.
	Dir string `env:"SOURCE_DIR" default:"data"`

	// Path names one bundle explicitly and wins over Dir.
	Path string `env:"SOURCE_PATH"`

	// AutoLoad loads a source at startup (default: true)
	AutoLoad bool `env:"SOURCE_AUTOLOAD" default:"true"`
}

// UploadConfig holds upload and load scheduling settings.
type UploadConfig struct {
	// MaxFileSize is the largest accepted upload in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the number of sources decoded in parallel (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single decode (default: 10m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"10m"`
}

// ViewConfig holds viewer settings.
type ViewConfig struct {
	PageSize    int `env:"VIEW_PAGE_SIZE" default:"100"`
	CacheSize   int `env:"VIEW_CACHE_SIZE" default:"16"`
	MaxSessions int `env:"VIEW_MAX_SESSIONS" default:"32"`
}

// DatabaseConfig holds optional database sources. Both are disabled when
// their connection string is empty.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Schema is the PostgreSQL schema whose tables are loaded (default: public)
	Schema string `env:"DB_SCHEMA" default:"public"`

	// MySQLDSN is a go-sql-driver/mysql DSN, e.g. user:pw@tcp(host:3306)/db
	MySQLDSN string `env:"MYSQL_DSN"`

	// RowLimit caps rows read per table (default: 10000)
	RowLimit int `env:"DB_ROW_LIMIT" default:"10000"`

	// MaxTables caps tables read per database (default: 200)
	MaxTables int `env:"DB_MAX_TABLES" default:"200"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// PostgresEnabled reports whether a PostgreSQL source is configured.
func (c *DatabaseConfig) PostgresEnabled() bool { return c.URL != "" }

// MySQLEnabled reports whether a MySQL source is configured.
func (c *DatabaseConfig) MySQLEnabled() bool { return c.MySQLDSN != "" }

// SharingConfig holds Delta Sharing profile settings.
type SharingConfig struct {
	MaxTables int           `env:"SHARING_MAX_TABLES" default:"50"`
	Timeout   time.Duration `env:"SHARING_TIMEOUT" default:"2m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for upload endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey guards /api with the X-API-Key header.
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// SeqURL additionally ships logs to a Seq server when set.
	SeqURL string `env:"LOG_SEQ_URL"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
