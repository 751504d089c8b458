package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field maps to an
// environment variable; required variables are enforced by must() and
// halt startup when missing.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	// Payment gateway.
	GatewayBaseURL string        // base URL of the mobile money gateway
	GatewayAPIUser string        // gateway API user for token requests
	GatewayAPIKey  string        // gateway API key for token requests
	GatewayTimeout time.Duration // per-request HTTP timeout

	// Trip generation.
	GenerateEvery time.Duration // how often the scheduled generator runs
}

// Load reads configuration from the environment. Optional values fall
// back to sensible defaults so a dev setup only has to provide the
// database, JWT and gateway credentials.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		GatewayBaseURL: must("GATEWAY_BASE_URL"),
		GatewayAPIUser: must("GATEWAY_API_USER"),
		GatewayAPIKey:  must("GATEWAY_API_KEY"),
		GatewayTimeout: durationOr("GATEWAY_TIMEOUT", 15*time.Second),

		GenerateEvery: durationOr("TRIP_GENERATE_EVERY", time.Hour),
	}
}

// must retrieves a required environment variable. If the variable is
// unset or empty the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value to an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// durationOr parses an optional duration variable ("15s", "1h"),
// returning def when the variable is unset. A malformed value is
// fatal rather than silently defaulted.
func durationOr(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, s)
	}
	return d
}
