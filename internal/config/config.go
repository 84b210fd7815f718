package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PlaceholderJWTSecret is the value shipped in .env.example. Booting prod
// with it (or with no secret at all) is a startup failure.
const PlaceholderJWTSecret = "change-this-jwt-secret-in-production"

type Config struct {
	Env  string
	Port int

	DBURL      string
	DBMaxConns int

	JWTSecret string
	JWTExpiry time.Duration

	BcryptCost int

	AllowedOrigins []string
	MaxBodyBytes   int64

	RateLimitWindow time.Duration
	RateLimitMax    int
	AuthRateWindow  time.Duration
	AuthRateMax     int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTLPEndpoint string
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		DBURL:      buildDBURL(),
		DBMaxConns: getEnvInt("DB_MAX_CONNS", 5),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTExpiry: getEnvDuration("JWT_EXPIRES_IN", 24*time.Hour),

		BcryptCost: getEnvInt("BCRYPT_COST", 12),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:3001"}),
		MaxBodyBytes:   int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 100),
		AuthRateWindow:  getEnvDuration("AUTH_RATE_LIMIT_WINDOW", 15*time.Minute),
		AuthRateMax:     getEnvInt("AUTH_RATE_LIMIT_MAX", 5),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
	}
}

// ValidateSecrets enforces the production secret policy once at startup;
// token issuing itself never re-checks.
func (c Config) ValidateSecrets() error {
	if c.JWTSecret == "" || c.JWTSecret == PlaceholderJWTSecret {
		if c.Env == "prod" {
			return fmt.Errorf("JWT_SECRET must be set to a secure value in production")
		}
	}
	return nil
}

func buildDBURL() string {
	if url := getEnv("DATABASE_URL", ""); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "taskhub")
	pass := getEnv("DB_PASSWORD", "taskhub")
	name := getEnv("DB_NAME", "taskhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err != nil {
			return fallback
		}

		return d
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	if len(out) == 0 {
		return fallback
	}

	return out
}
