package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Storage     StorageConfig   `mapstructure:"storage"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Model       ModelConfig     `mapstructure:"model"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Auth        AuthConfig      `mapstructure:"auth"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	MCP         MCPConfig       `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// StorageConfig selects the recommendation history backend
type StorageConfig struct {
	Driver          string `mapstructure:"driver"` // "sqlite", "postgres", "mongo", "none"
	SQLitePath      string `mapstructure:"sqlite_path"`
	MongoURI        string `mapstructure:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection"`
}

// CacheConfig represents recommendation cache configuration
type CacheConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	MemoryMaxItems int           `mapstructure:"memory_max_items"`
	MemoryTTL      time.Duration `mapstructure:"memory_ttl"`
	RedisURL       string        `mapstructure:"redis_url"`
	RedisTTL       time.Duration `mapstructure:"redis_ttl"`
	MaxRetries     int           `mapstructure:"max_retries"`
	PoolSize       int           `mapstructure:"pool_size"`
	PoolTimeout    time.Duration `mapstructure:"pool_timeout"`
}

// ModelConfig selects and tunes the prediction backend
type ModelConfig struct {
	Backend        string        `mapstructure:"backend"` // "rules", "remote"
	RemoteURL      string        `mapstructure:"remote_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      int           `mapstructure:"rate_limit"` // requests per second
	ReloadSchedule string        `mapstructure:"reload_schedule"`
}

// RateLimitConfig represents per-client HTTP rate limiting
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerSecond int  `mapstructure:"requests_per_second"`
	Burst             int  `mapstructure:"burst"`
}

// AuthConfig represents user account and bearer token configuration
type AuthConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	JWTSecret        string        `mapstructure:"jwt_secret"`
	Issuer           string        `mapstructure:"issuer"`
	TokenTTL         time.Duration `mapstructure:"token_ttl"`
	ResetTTL         time.Duration `mapstructure:"reset_ttl"`
	ExposeResetToken bool          `mapstructure:"expose_reset_token"` // development only
	ResetURL         string        `mapstructure:"reset_url"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}
