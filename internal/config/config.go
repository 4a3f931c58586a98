// Package config provides configuration loading for the Hola Lucia API.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/AIX-Clever/chat-booking-admin/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Stripe    StripeConfig    `mapstructure:"stripe"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	Environment    string        `mapstructure:"environment"` // dev, staging, prod
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as golang-migrate expects.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig holds bearer token verification settings.
// Tokens are issued elsewhere; this service only verifies them.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTIssuer string        `mapstructure:"jwt_issuer"`
	Leeway    time.Duration `mapstructure:"leeway"`
}

// StripeConfig holds Stripe billing configuration.
type StripeConfig struct {
	SecretKey     string            `mapstructure:"secret_key"`
	WebhookSecret string            `mapstructure:"webhook_secret"`
	Prices        map[string]string `mapstructure:"prices"` // plan tier -> price id
}

// PriceFor returns the Stripe price id configured for a tier.
// Viper lowercases map keys, so tiers match case-insensitively here.
func (c StripeConfig) PriceFor(plan models.Plan) (string, bool) {
	for tier, price := range c.Prices {
		if strings.EqualFold(strings.TrimSpace(tier), string(plan)) {
			return price, price != ""
		}
	}
	return "", false
}

// PlanFor returns the tier a Stripe price id unlocks.
func (c StripeConfig) PlanFor(priceID string) (models.Plan, bool) {
	if priceID == "" {
		return "", false
	}
	for tier, price := range c.Prices {
		plan := models.Plan(strings.ToUpper(strings.TrimSpace(tier)))
		if price == priceID && models.ValidPlan(plan) {
			return plan, true
		}
	}
	return "", false
}

// CacheConfig holds read-through cache settings.
type CacheConfig struct {
	TenantTTL time.Duration `mapstructure:"tenant_ttl"`
}

// RateLimitConfig holds per-tenant request limits.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

// Load reads configuration from files and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/holalucia")

	v.SetEnvPrefix("HOLALUCIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Keys without defaults must be bound explicitly.
	v.BindEnv("auth.jwt_secret", "HOLALUCIA_AUTH_JWT_SECRET")
	v.BindEnv("stripe.secret_key", "HOLALUCIA_STRIPE_SECRET_KEY")
	v.BindEnv("stripe.webhook_secret", "HOLALUCIA_STRIPE_WEBHOOK_SECRET")
	for _, plan := range models.AllPlans {
		key := strings.ToLower(string(plan))
		v.BindEnv("stripe.prices."+key, "HOLALUCIA_STRIPE_PRICES_"+string(plan))
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "dev")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "holalucia")
	v.SetDefault("database.password", "holalucia")
	v.SetDefault("database.database", "holalucia")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_issuer", "holalucia")
	v.SetDefault("auth.leeway", "30s")

	v.SetDefault("cache.tenant_ttl", "5m")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_minute", 120)
}
