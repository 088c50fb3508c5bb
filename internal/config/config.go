package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Business BusinessConfig `mapstructure:"business"`
	Health   HealthConfig   `mapstructure:"health"`
}

type ServerConfig struct {
	Port string `mapstructure:"SERVER_PORT"`
	Host string `mapstructure:"SERVER_HOST"`
	Env  string `mapstructure:"ENV"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

// BusinessConfig carries the fallback values for the operator-editable
// settings. The settings provider prefers the system_config table and only
// falls back to these when a key was never seeded.
type BusinessConfig struct {
	LoanInterestRate          string `mapstructure:"LOAN_INTEREST_RATE"`
	RetirementAge             string `mapstructure:"RETIREMENT_AGE"`
	MaxLoanTenure             string `mapstructure:"MAX_LOAN_TENURE"`
	LoanEligibilityMultiplier string `mapstructure:"LOAN_ELIGIBILITY_MULTIPLIER"`
	MaxEmiPercentage          string `mapstructure:"MAX_EMI_PERCENTAGE"`
	SettingsCacheTTL          string `mapstructure:"SETTINGS_CACHE_TTL"`
	AuditChannel              string `mapstructure:"AUDIT_CHANNEL"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("LOAN_INTEREST_RATE", "12.0")
	viper.SetDefault("RETIREMENT_AGE", "60")
	viper.SetDefault("MAX_LOAN_TENURE", "240")
	viper.SetDefault("LOAN_ELIGIBILITY_MULTIPLIER", "36")
	viper.SetDefault("MAX_EMI_PERCENTAGE", "50")
	viper.SetDefault("SETTINGS_CACHE_TTL", "5m")
	viper.SetDefault("AUDIT_CHANNEL", "audit.events")
	viper.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if _, err := decimal.NewFromString(c.Business.LoanInterestRate); err != nil {
		return fmt.Errorf("LOAN_INTEREST_RATE must be a valid decimal: %w", err)
	}

	if _, err := decimal.NewFromString(c.Business.LoanEligibilityMultiplier); err != nil {
		return fmt.Errorf("LOAN_ELIGIBILITY_MULTIPLIER must be a valid decimal: %w", err)
	}

	if _, err := time.ParseDuration(c.Business.SettingsCacheTTL); err != nil {
		return fmt.Errorf("SETTINGS_CACHE_TTL must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Health.Timeout); err != nil {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a valid duration: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// SettingsDefaults returns the fallback values keyed the way the
// system_config table keys them.
func (c *Config) SettingsDefaults() map[string]string {
	return map[string]string{
		"loan_interest_rate":          c.Business.LoanInterestRate,
		"retirement_age":              c.Business.RetirementAge,
		"max_loan_tenure":             c.Business.MaxLoanTenure,
		"loan_eligibility_multiplier": c.Business.LoanEligibilityMultiplier,
		"max_emi_percentage":          c.Business.MaxEmiPercentage,
	}
}

// GetSettingsCacheTTL returns the settings cache TTL as duration
func (c *Config) GetSettingsCacheTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Business.SettingsCacheTTL)
	return ttl
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}
