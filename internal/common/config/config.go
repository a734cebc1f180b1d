// Package config holds the layered application configuration.
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Identity      IdentityConfig     `mapstructure:"identity"`
	Registry      RegistryConfig     `mapstructure:"registry"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address        string `mapstructure:"address"`
	MetricsAddress string `mapstructure:"metrics_address"`
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

// GetDSN returns the PostgreSQL connection string.
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
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	OfferIndex string   `mapstructure:"offer_index"`
}

// IdentityConfig points at the external identity gate that resolves bearer
// tokens to an actor (id + role).
type IdentityConfig struct {
	IntrospectionURL string `mapstructure:"introspection_url"`
	ClientID         string `mapstructure:"client_id"`
	ClientSecret     string `mapstructure:"client_secret"`
	Timeout          int    `mapstructure:"timeout"` // milliseconds
}

// RegistryConfig locates the lifecycle action registry.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// NotificationConfig holds settings for the dispatcher and its channels.
type NotificationConfig struct {
	QueueSize   int `mapstructure:"queue_size"`
	Workers     int `mapstructure:"workers"`
	PushTimeout int `mapstructure:"push_timeout"` // milliseconds

	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"sms"`
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
