// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr            string        `yaml:"addr" env:"SERVER_ADDR"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`

	Hosts struct {
		PublicPrefix string `yaml:"public_prefix" env:"HOST_PUBLIC_PREFIX"`
		AdminPrefix  string `yaml:"admin_prefix" env:"HOST_ADMIN_PREFIX"`
		APIPrefix    string `yaml:"api_prefix" env:"HOST_API_PREFIX"`

		// BlockedAgents are user agent fragments refused on the public site.
		BlockedAgents []string `yaml:"blocked_agents" env:"HOST_BLOCKED_AGENTS" envSeparator:","`
	} `yaml:"hosts"`

	Database struct {
		URL             string        `yaml:"url" env:"DATABASE_URL"`
		MaxOpenConns    int           `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
		MaxIdleConns    int           `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`

	RabbitMQ struct {
		URL   string `yaml:"url" env:"RABBITMQ_URL"`
		Queue string `yaml:"queue" env:"RABBITMQ_QUEUE"`
	} `yaml:"rabbitmq"`

	Workers int `yaml:"workers" env:"WORKERS"`

	Auth struct {
		JWTSecret    string        `yaml:"jwt_secret" env:"JWT_SECRET"`
		SessionTTL   time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
		APIKeyHeader string        `yaml:"api_key_header" env:"API_KEY_HEADER"`
		APIKeyPrefix string        `yaml:"api_key_prefix" env:"API_KEY_PREFIX"`
		APIKeyLength int           `yaml:"api_key_length" env:"API_KEY_LENGTH"`

		// Accounts enables registration, password reset and OTP login.
		// Codes live in Redis, so redis.addr is required.
		Accounts struct {
			Enabled     bool          `yaml:"enabled" env:"ACCOUNTS_ENABLED"`
			ResetTTL    time.Duration `yaml:"reset_ttl" env:"ACCOUNTS_RESET_TTL"`
			ResetURL    string        `yaml:"reset_url" env:"ACCOUNTS_RESET_URL"`
			OTPTTL      time.Duration `yaml:"otp_ttl" env:"ACCOUNTS_OTP_TTL"`
			OTPLength   int           `yaml:"otp_length" env:"ACCOUNTS_OTP_LENGTH"`
			MaxAttempts int           `yaml:"max_attempts" env:"ACCOUNTS_MAX_ATTEMPTS"`
		} `yaml:"accounts"`
	} `yaml:"auth"`

	Notify struct {
		Driver        string        `yaml:"driver" env:"NOTIFY_DRIVER"`
		From          string        `yaml:"from" env:"NOTIFY_FROM"`
		MailgunDomain string        `yaml:"mailgun_domain" env:"MAILGUN_DOMAIN"`
		MailgunAPIKey string        `yaml:"mailgun_api_key" env:"MAILGUN_API_KEY"`
		Every         time.Duration `yaml:"every" env:"NOTIFY_EVERY"`
		Burst         int           `yaml:"burst" env:"NOTIFY_BURST"`
	} `yaml:"notify"`

	Directory struct {
		LookupTimeout time.Duration `yaml:"lookup_timeout" env:"DIRECTORY_LOOKUP_TIMEOUT"`
		Cache         struct {
			Enabled bool          `yaml:"enabled" env:"DIRECTORY_CACHE_ENABLED"`
			TTL     time.Duration `yaml:"ttl" env:"DIRECTORY_CACHE_TTL"`
		} `yaml:"cache"`
	} `yaml:"directory"`

	Rates struct {
		Enabled          bool          `yaml:"enabled" env:"RATES_ENABLED"`
		CurrencySchedule string        `yaml:"currency_schedule" env:"RATES_CURRENCY_SCHEDULE"`
		MetalSchedule    string        `yaml:"metal_schedule" env:"RATES_METAL_SCHEDULE"`
		CurrencyURL      string        `yaml:"currency_url" env:"RATES_CURRENCY_URL"`
		CurrencyAPIKey   string        `yaml:"currency_api_key" env:"RATES_CURRENCY_API_KEY"`
		CurrencyBase     string        `yaml:"currency_base" env:"RATES_CURRENCY_BASE"`
		MetalURL         string        `yaml:"metal_url" env:"RATES_METAL_URL"`
		MetalAPIKey      string        `yaml:"metal_api_key" env:"RATES_METAL_API_KEY"`
		HTTPTimeout      time.Duration `yaml:"http_timeout" env:"RATES_HTTP_TIMEOUT"`
	} `yaml:"rates"`

	Log struct {
		Level       string `yaml:"level" env:"LOG_LEVEL"`
		Environment string `yaml:"environment" env:"APP_ENV"`
	} `yaml:"log"`
}

// Default returns a config with every optional knob filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Hosts.PublicPrefix = "www."
	cfg.Hosts.AdminPrefix = "admin."
	cfg.Hosts.APIPrefix = "api."
	cfg.Hosts.BlockedAgents = []string{"HTTrack", "Wget", "curl", "python-requests", "libwww-perl", "Java/"}
	cfg.Database.MaxOpenConns = 20
	cfg.Database.MaxIdleConns = 5
	cfg.Database.ConnMaxLifetime = time.Hour
	cfg.RabbitMQ.Queue = "rate_jobs"
	cfg.Workers = 2
	cfg.Auth.SessionTTL = 24 * time.Hour
	cfg.Auth.APIKeyHeader = "X-API-KEY"
	cfg.Auth.APIKeyPrefix = "sk_"
	cfg.Auth.APIKeyLength = 48
	cfg.Auth.Accounts.ResetTTL = time.Hour
	cfg.Auth.Accounts.ResetURL = "http://admin.localhost:8080/password/reset"
	cfg.Auth.Accounts.OTPTTL = 5 * time.Minute
	cfg.Auth.Accounts.OTPLength = 6
	cfg.Auth.Accounts.MaxAttempts = 5
	cfg.Notify.Driver = "log"
	cfg.Notify.From = "Storefront <no-reply@localhost>"
	cfg.Notify.Every = time.Minute
	cfg.Notify.Burst = 3
	cfg.Directory.LookupTimeout = 2 * time.Second
	cfg.Directory.Cache.TTL = 5 * time.Minute
	cfg.Rates.CurrencySchedule = "@every 1h"
	cfg.Rates.MetalSchedule = "@every 15m"
	cfg.Rates.CurrencyURL = "https://v6.exchangerate-api.com/v6"
	cfg.Rates.CurrencyBase = "USD"
	cfg.Rates.MetalURL = "https://www.goldapi.io/api"
	cfg.Rates.HTTPTimeout = 10 * time.Second
	cfg.Log.Level = "info"
	cfg.Log.Environment = "development"
	return cfg
}

// LoadConfig reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is fine when path is empty.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}
	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 characters"))
	}
	if c.Auth.APIKeyHeader == "" {
		errs = append(errs, errors.New("auth.api_key_header is required"))
	}
	if c.Auth.APIKeyLength < 32 {
		errs = append(errs, errors.New("auth.api_key_length must be at least 32"))
	}
	if c.Directory.Cache.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when directory.cache is enabled"))
	}
	if c.Auth.Accounts.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when auth.accounts is enabled"))
	}
	if c.Auth.Accounts.Enabled && (c.Auth.Accounts.OTPLength < 4 || c.Auth.Accounts.OTPLength > 8) {
		errs = append(errs, errors.New("auth.accounts.otp_length must be between 4 and 8"))
	}
	switch c.Notify.Driver {
	case "log":
	case "mailgun":
		if c.Notify.MailgunDomain == "" || c.Notify.MailgunAPIKey == "" {
			errs = append(errs, errors.New("notify.mailgun_domain and notify.mailgun_api_key are required for the mailgun driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("notify.driver %q must be log or mailgun", c.Notify.Driver))
	}
	if c.Rates.Enabled && c.RabbitMQ.URL == "" {
		errs = append(errs, errors.New("rabbitmq.url is required when rates are enabled"))
	}
	return errors.Join(errs...)
}
