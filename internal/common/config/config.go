// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig              `mapstructure:"app"`
	Database      DatabaseConfig         `mapstructure:"database"`
	Queues        map[string]QueueConfig `mapstructure:"queues"`
	Publisher     PublisherConfig        `mapstructure:"publisher"`
	Cache         CacheConfig            `mapstructure:"cache"`
	Notifications NotificationConfig     `mapstructure:"notifications"`
	Logging       LoggingConfig          `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// QueueConfig holds the per-queue consumer settings.
type QueueConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Stream           string `mapstructure:"stream"`
	Group            string `mapstructure:"group"`
	DeadLetterStream string `mapstructure:"dead_letter_stream"`
	PrefetchCount    int    `mapstructure:"prefetch_count"`
	MaxRetries       int    `mapstructure:"max_retries"`
	RetryBackoff     int    `mapstructure:"retry_backoff"`    // milliseconds before a pending entry is reclaimed
	ConnectBackoff   int    `mapstructure:"connect_backoff"`  // milliseconds between connect attempts
	BlockTimeout     int    `mapstructure:"block_timeout"`    // milliseconds XREADGROUP blocks for
}

// PublisherConfig holds settings for the event publisher and its breaker.
type PublisherConfig struct {
	Stream       string `mapstructure:"stream"`
	MaxAttempts  int    `mapstructure:"max_attempts"`
	BaseBackoff  int    `mapstructure:"base_backoff"`  // milliseconds, doubled per attempt
	MaxBackoff   int    `mapstructure:"max_backoff"`   // milliseconds, cap
	FailMax      int    `mapstructure:"fail_max"`      // consecutive failures before the breaker opens
	ResetTimeout int    `mapstructure:"reset_timeout"` // milliseconds before a half-open trial
}

// CacheConfig holds settings for the template read cache.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	TTL     int  `mapstructure:"ttl"` // seconds
}

// NotificationConfig holds settings for the channel senders.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	Push struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"push"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
