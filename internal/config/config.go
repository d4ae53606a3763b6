package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "jokeimport"

	// ModuleName is the logger channel and the settings namespace.
	ModuleName = "norris_import"

	// DefaultTimeout bounds every upstream GET. A request still running after
	// this long is reported as a timeout failure for its unit of work.
	DefaultTimeout = 12 * time.Second

	// DefaultConcurrency is the maximum number of in-flight fetches.
	// It is a fixed ceiling and does not grow with the batch size.
	DefaultConcurrency = 8

	// DefaultUserAgent identifies jokeimport to the upstream API.
	DefaultUserAgent = "jokeimport/1.0 (+https://github.com/nao1215/jokeimport)"

	// DefaultMaxBodySize limits how much of a response body is read.
	// A single joke is well under 1KB; 1MB leaves room for odd upstreams.
	DefaultMaxBodySize = 1 * 1024 * 1024 // 1MB

	// DefaultListenAddress is where `jokeimport serve` binds the admin server.
	DefaultListenAddress = "127.0.0.1:8080"

	// DefaultMongoDatabase is the database name used by the mongo store.
	DefaultMongoDatabase = "jokeimport"
)

// Store drivers.
const (
	// DriverSQLite stores nodes in a single SQLite file under DBDir.
	DriverSQLite = "sqlite"

	// DriverMongo stores nodes in a MongoDB collection named after the node type.
	DriverMongo = "mongo"
)

// Config holds runtime options for jokeimport.
// It is populated from CLI flags and handed to app.New; nothing reads it
// from global state.
type Config struct {
	// SettingsPath is the path of the YAML settings file.
	// Empty means ResolveSettingsPath decides.
	SettingsPath string

	// Timeout is the per-request timeout for upstream fetches.
	Timeout time.Duration

	// Concurrency is the ceiling on simultaneous upstream fetches.
	Concurrency int

	// StoreDriver selects the node store: DriverSQLite or DriverMongo.
	StoreDriver string

	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/jokeimport on Linux).
	DBDir string

	// MongoURI is the connection string for DriverMongo.
	MongoURI string

	// MongoDatabase is the database name for DriverMongo.
	MongoDatabase string

	// ProxyAddress is an optional SOCKS5 proxy ("host:port") for upstream requests.
	ProxyAddress string

	// UserAgent is sent with every upstream request.
	UserAgent string

	// MaxBodySize caps the bytes read from one upstream response.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches the log output to JSON lines.
	JSONLog bool

	// ListenAddress is the admin server bind address.
	ListenAddress string

	// Schedule is an optional cron expression for periodic imports.
	Schedule string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		Concurrency:   DefaultConcurrency,
		StoreDriver:   DriverSQLite,
		DBDir:         XDGDataDir(),
		MongoDatabase: DefaultMongoDatabase,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
		ListenAddress: DefaultListenAddress,
	}
}

// XDGDataDir returns the XDG data directory for jokeimport.
// On Linux: ~/.local/share/jokeimport
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for jokeimport.
// On Linux: ~/.config/jokeimport
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the runtime configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	switch c.StoreDriver {
	case DriverSQLite:
	case DriverMongo:
		if c.MongoURI == "" {
			return ErrMissingMongoURI
		}
	default:
		return ErrUnknownStoreDriver
	}

	return nil
}
