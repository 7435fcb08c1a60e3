package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Throttle ThrottleConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	IPAllowlist    []string // CIDR ranges; empty means no allowlist
	TrustedProxies []string
}

type AuthConfig struct {
	TokenSecret          string
	TokenLifetime        time.Duration
	IdleTimeout          time.Duration
	TokenVersionCacheTTL time.Duration // 0 disables caching (store lookup on every validation)
	StoreTimeout         time.Duration // per-lookup timeout; a timeout rejects the request
	TOTPIssuer           string
	CleanupInterval      time.Duration
	BootstrapUsername    string
	BootstrapPassword    string
}

type ThrottleConfig struct {
	FreeAttempts int
	BaseLockout  time.Duration
	MaxLockout   time.Duration
	Window       time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	tokenSecret := getEnv("TOKEN_SECRET", "")
	if tokenSecret == "" {
		return nil, fmt.Errorf("TOKEN_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "console"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS"),
			IPAllowlist:    getEnvAsList("IP_ALLOWLIST"),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
		},
		Auth: AuthConfig{
			TokenSecret:          tokenSecret,
			TokenLifetime:        getEnvAsDuration("TOKEN_LIFETIME", 8*time.Hour),
			IdleTimeout:          getEnvAsDuration("IDLE_TIMEOUT", 30*time.Minute),
			TokenVersionCacheTTL: getEnvAsDuration("TOKEN_VERSION_CACHE_TTL", 3*time.Second),
			StoreTimeout:         getEnvAsDuration("STORE_TIMEOUT", 2*time.Second),
			TOTPIssuer:           getEnv("TOTP_ISSUER", "Strandnet Console"),
			CleanupInterval:      getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			BootstrapUsername:    getEnv("BOOTSTRAP_USERNAME", ""),
			BootstrapPassword:    getEnv("BOOTSTRAP_PASSWORD", ""),
		},
		Throttle: ThrottleConfig{
			FreeAttempts: getEnvAsInt("THROTTLE_FREE_ATTEMPTS", 3),
			BaseLockout:  getEnvAsDuration("THROTTLE_BASE_LOCKOUT", 30*time.Second),
			MaxLockout:   getEnvAsDuration("THROTTLE_MAX_LOCKOUT", 1*time.Hour),
			Window:       getEnvAsDuration("THROTTLE_WINDOW", 15*time.Minute),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateTokenSecret(tokenSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateTokenSecret enforces minimum strength for the token signing secret
func validateTokenSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("TOKEN_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("TOKEN_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
