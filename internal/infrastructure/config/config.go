// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Email      EmailConfig      `mapstructure:"email"`
	ImageHost  ImageHostConfig  `mapstructure:"image_host"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name              string `mapstructure:"name"`
	Version           string `mapstructure:"version"`
	Environment       string `mapstructure:"environment"`
	Debug             bool   `mapstructure:"debug"`
	LogLevel          string `mapstructure:"log_level"`
	LogFormat         string `mapstructure:"log_format"`
	SecretKey         string `mapstructure:"secret_key"`
	AdminEmail        string `mapstructure:"admin_email"`
	RecipesPerPage    int    `mapstructure:"recipes_per_page"`
	UsersPerPage      int    `mapstructure:"users_per_page"`
	MailSubjectPrefix string `mapstructure:"mail_subject_prefix"`
	MailSender        string `mapstructure:"mail_sender"`
	BaseURL           string `mapstructure:"base_url"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	SecureCookies     bool          `mapstructure:"secure_cookies"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	Replicas        []string      `mapstructure:"replicas"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
	RememberTTL       time.Duration `mapstructure:"remember_ttl"`
	ResetTokenTTL     time.Duration `mapstructure:"reset_token_ttl"`
	TokenLeeway       time.Duration `mapstructure:"token_leeway"`
	BCryptCost        int           `mapstructure:"bcrypt_cost"`
	SessionCookieName string        `mapstructure:"session_cookie_name"`
	MinPasswordLength int           `mapstructure:"min_password_length"`
}

// EmailConfig contains SMTP configuration. An empty host disables delivery.
type EmailConfig struct {
	SMTPHost     string        `mapstructure:"smtp_host"`
	SMTPPort     int           `mapstructure:"smtp_port"`
	SMTPUsername string        `mapstructure:"smtp_username"`
	SMTPPassword string        `mapstructure:"smtp_password"`
	SendTimeout  time.Duration `mapstructure:"send_timeout"`
}

// ImageHostConfig selects where recipe images are stored.
type ImageHostConfig struct {
	Provider      string        `mapstructure:"provider"` // none, imgbb, s3
	APIKey        string        `mapstructure:"api_key"`
	UploadURL     string        `mapstructure:"upload_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxUploadSize int64         `mapstructure:"max_upload_size"`
	Region        string        `mapstructure:"region"`
	Bucket        string        `mapstructure:"bucket"`
	Endpoint      string        `mapstructure:"endpoint"`
	PublicBaseURL string        `mapstructure:"public_base_url"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics bool    `mapstructure:"enable_metrics"`
	EnableTracing bool    `mapstructure:"enable_tracing"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRate  float64 `mapstructure:"sampling_rate"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enable         bool          `mapstructure:"enable"`
	RequestsPerMin int           `mapstructure:"requests_per_min"`
	BurstSize      int           `mapstructure:"burst_size"`
	Window         time.Duration `mapstructure:"window"`
}

// Environments lists the named configuration presets.
var Environments = map[string]func(v *viper.Viper){
	"development": func(v *viper.Viper) {
		v.SetDefault("app.debug", true)
		v.SetDefault("app.log_format", "console")
		v.SetDefault("app.log_level", "debug")
		v.SetDefault("database.driver", "sqlite")
		v.SetDefault("database.path", "data-dev.sqlite")
	},
	"testing": func(v *viper.Viper) {
		v.SetDefault("database.driver", "sqlite")
		v.SetDefault("database.path", ":memory:")
		v.SetDefault("auth.bcrypt_cost", 4)
		v.SetDefault("rate_limit.enable", false)
		v.SetDefault("monitoring.enable_metrics", false)
	},
	"production": func(v *viper.Viper) {
		v.SetDefault("database.driver", "postgres")
		v.SetDefault("database.path", "data.sqlite")
		v.SetDefault("server.secure_cookies", true)
	},
}

// ForEnvironment reports an error for unknown environment names.
func ForEnvironment(name string) (string, error) {
	name = strings.ToLower(name)
	if name == "" || name == "default" {
		return "development", nil
	}
	if _, ok := Environments[name]; !ok {
		available := make([]string, 0, len(Environments)+1)
		for env := range Environments {
			available = append(available, env)
		}
		available = append(available, "default")
		sort.Strings(available)
		return "", fmt.Errorf("unknown config %s. Available configs: %s", name, strings.Join(available, ", "))
	}
	return name, nil
}

// Load loads configuration from .env, an optional config file and environment variables
func Load(configPath string) (*Config, error) {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	v := viper.New()

	v.SetEnvPrefix("TYMENU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	env, err := ForEnvironment(v.GetString("app.environment"))
	if err != nil {
		return nil, err
	}
	setDefaults(v)
	Environments[env](v)
	v.Set("app.environment", env)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/tymenu")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "TyMenu")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")
	v.SetDefault("app.secret_key", "hard to guess string")
	v.SetDefault("app.recipes_per_page", 20)
	v.SetDefault("app.users_per_page", 50)
	v.SetDefault("app.mail_subject_prefix", "[TyMenu]")
	v.SetDefault("app.mail_sender", "TyMenu Admin <tymenu@example.com>")
	v.SetDefault("app.base_url", "http://localhost:8080")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.enable_compression", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data.sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "tymenu")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	v.SetDefault("auth.session_ttl", "24h")
	v.SetDefault("auth.remember_ttl", "720h")
	v.SetDefault("auth.reset_token_ttl", "1h")
	v.SetDefault("auth.token_leeway", "10s")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.session_cookie_name", "tymenu_session")
	v.SetDefault("auth.min_password_length", 3)

	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.send_timeout", "30s")

	v.SetDefault("image_host.provider", "none")
	v.SetDefault("image_host.upload_url", "https://api.imgbb.com/1/upload")
	v.SetDefault("image_host.timeout", "30s")
	v.SetDefault("image_host.max_upload_size", 16<<20)

	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.sampling_rate", 0.1)

	v.SetDefault("rate_limit.enable", true)
	v.SetDefault("rate_limit.requests_per_min", 120)
	v.SetDefault("rate_limit.burst_size", 20)
	v.SetDefault("rate_limit.window", "1m")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.App.SecretKey == "" {
		return fmt.Errorf("app.secret_key is required")
	}
	if c.IsProduction() && c.App.SecretKey == "hard to guess string" {
		return fmt.Errorf("app.secret_key must be changed in production")
	}
	if c.App.RecipesPerPage < 1 || c.App.UsersPerPage < 1 {
		return fmt.Errorf("app.recipes_per_page and app.users_per_page must be positive")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	switch c.ImageHost.Provider {
	case "none", "":
	case "imgbb":
		if c.ImageHost.APIKey == "" {
			return fmt.Errorf("image_host.api_key is required for imgbb")
		}
	case "s3":
		if c.ImageHost.Bucket == "" || c.ImageHost.Region == "" {
			return fmt.Errorf("image_host.bucket and image_host.region are required for s3")
		}
	default:
		return fmt.Errorf("image_host.provider must be none, imgbb or s3, got %q", c.ImageHost.Provider)
	}
	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// GetDSN returns the postgres connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.Username,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetDatabaseURL returns the postgres URL form used by golang-migrate.
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.Username,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns host:port for the redis client
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// GetServerAddr returns host:port for the HTTP listener
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
