package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const DefaultJWTSecret = "your-secret-key-change-in-production"

// Store drivers accepted in STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	Port        string
	Environment string // ENV: production, development, etc.

	JWTSecret string
	TokenTTL  time.Duration

	StoreDriver string
	PostgresURI string
	MongoURI    string
	RedisURI    string // empty disables Redis rate limiting and cross-instance events

	RateLimitMax    int
	RateLimitWindow time.Duration

	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
}

func Load() *Config {
	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", ""), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" && !containsOrigin(allowedOrigins, u) {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return &Config{
		Port:                getEnv("PORT", "3000"),
		Environment:         strings.ToLower(strings.TrimSpace(getEnv("ENV", "development"))),
		JWTSecret:           getEnv("JWT_SECRET", DefaultJWTSecret),
		TokenTTL:            getDuration("TOKEN_TTL", 7*24*time.Hour),
		StoreDriver:         strings.ToLower(strings.TrimSpace(getEnv("STORE_DRIVER", StoreMemory))),
		PostgresURI:         getEnv("POSTGRES_URI", "postgres://localhost:5432/todos?sslmode=disable"),
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/todos")),
		RedisURI:            getEnv("REDIS_URI", ""),
		RateLimitMax:        getInt("RATE_LIMIT_MAX", 120),
		RateLimitWindow:     getDuration("RATE_LIMIT_WINDOW", time.Minute),
		AllowedOrigins:      allowedOrigins,
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory, StorePostgres, StoreMongo:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want memory, postgres or mongo)", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.RateLimitMax <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive, got %d", c.RateLimitMax)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow)
	}
	if c.IsProduction() && c.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// CloudinaryEnabled reports whether all Cloudinary credentials are present.
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt falls back to defaultValue when the variable is unset or not a number;
// Validate catches values that parse but are out of range.
func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return defaultValue
}
