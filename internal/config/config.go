package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/segyhp/loan-engine/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Auth      AuthConfig      `mapstructure:",squash"`
	SMTP      SMTPConfig      `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
	Timezone     string        `mapstructure:"TIMEZONE"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string        `mapstructure:"REDIS_HOST"`
	Port     string        `mapstructure:"REDIS_PORT"`
	Password string        `mapstructure:"REDIS_PASSWORD"`
	DB       int           `mapstructure:"REDIS_DB"`
	CacheTTL time.Duration `mapstructure:"REDIS_CACHE_TTL"`
}

type SchedulerConfig struct {
	ReminderSpec      string `mapstructure:"SCHEDULER_REMINDER_SPEC"`
	OTPPurgeSpec      string `mapstructure:"SCHEDULER_OTP_PURGE_SPEC"`
	ReminderDaysAhead int    `mapstructure:"REMINDER_DAYS_AHEAD"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	MinLoanAmount       string `mapstructure:"MIN_LOAN_AMOUNT"`
	MaxLoanAmount       string `mapstructure:"MAX_LOAN_AMOUNT"`
	MinTenureMonths     int    `mapstructure:"MIN_TENURE_MONTHS"`
	MaxTenureMonths     int    `mapstructure:"MAX_TENURE_MONTHS"`
	ForeclosureDiscount string `mapstructure:"FORECLOSURE_DISCOUNT_RATE"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`
	OTPTTL    time.Duration `mapstructure:"OTP_TTL"`

	// OTPMaxAttempts is how many wrong codes burn the current OTP
	OTPMaxAttempts int `mapstructure:"OTP_MAX_ATTEMPTS"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"SMTP_HOST"`
	Port     string `mapstructure:"SMTP_PORT"`
	Username string `mapstructure:"SMTP_USERNAME"`
	Password string `mapstructure:"SMTP_PASSWORD"`
	From     string `mapstructure:"SMTP_FROM"`
}

type HealthConfig struct {
	Timeout time.Duration `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "10s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CACHE_TTL", "10m")
	v.SetDefault("SCHEDULER_REMINDER_SPEC", "0 0 9 * * *")
	v.SetDefault("SCHEDULER_OTP_PURGE_SPEC", "0 0 * * * *")
	v.SetDefault("REMINDER_DAYS_AHEAD", 3)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("MIN_LOAN_AMOUNT", "1000")
	v.SetDefault("MAX_LOAN_AMOUNT", "100000")
	v.SetDefault("MIN_TENURE_MONTHS", 3)
	v.SetDefault("MAX_TENURE_MONTHS", 24)
	v.SetDefault("FORECLOSURE_DISCOUNT_RATE", "0.05")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "noreply@loan-engine.local")
	v.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	// Try to read from .env file (optional)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
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

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Auth.JWTTTL <= 0 || c.Auth.OTPTTL <= 0 {
		return fmt.Errorf("JWT_TTL and OTP_TTL must be positive durations")
	}

	if c.Auth.OTPMaxAttempts <= 0 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be positive")
	}

	if c.Health.Timeout <= 0 {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a positive duration")
	}

	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE must be a valid IANA zone: %w", err)
	}

	if c.Business.MinTenureMonths <= 0 || c.Business.MaxTenureMonths < c.Business.MinTenureMonths {
		return fmt.Errorf("MIN_TENURE_MONTHS/MAX_TENURE_MONTHS must describe a positive range")
	}

	minAmount, err := utils.DecimalFromString(c.Business.MinLoanAmount)
	if err != nil {
		return fmt.Errorf("MIN_LOAN_AMOUNT must be a valid decimal: %w", err)
	}
	maxAmount, err := utils.DecimalFromString(c.Business.MaxLoanAmount)
	if err != nil {
		return fmt.Errorf("MAX_LOAN_AMOUNT must be a valid decimal: %w", err)
	}
	if !minAmount.IsPositive() || maxAmount.LessThan(minAmount) {
		return fmt.Errorf("MIN_LOAN_AMOUNT/MAX_LOAN_AMOUNT must describe a positive range")
	}

	discount, err := utils.DecimalFromString(c.Business.ForeclosureDiscount)
	if err != nil {
		return fmt.Errorf("FORECLOSURE_DISCOUNT_RATE must be a valid decimal: %w", err)
	}
	if discount.IsNegative() || discount.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("FORECLOSURE_DISCOUNT_RATE must be between 0 and 1")
	}

	if c.Scheduler.ReminderDaysAhead < 0 {
		return fmt.Errorf("REMINDER_DAYS_AHEAD must not be negative")
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

// Location returns the zone used to decide what "today" is
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoanLimits returns the configured principal bounds
func (c *Config) LoanLimits() (minAmount, maxAmount decimal.Decimal) {
	minAmount, _ = decimal.NewFromString(c.Business.MinLoanAmount)
	maxAmount, _ = decimal.NewFromString(c.Business.MaxLoanAmount)
	return minAmount, maxAmount
}

// GetForeclosureDiscount returns the foreclosure discount rate as decimal
func (c *Config) GetForeclosureDiscount() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Business.ForeclosureDiscount)
	return rate
}

// RedisAddr returns host:port of the redis server
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// SMTPEnabled reports whether outbound mail is configured
func (c *Config) SMTPEnabled() bool {
	return strings.TrimSpace(c.SMTP.Host) != ""
}
