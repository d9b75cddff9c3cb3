package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration.  Each field maps to one
// environment variable; required values are enforced by must() and
// abort startup when missing.
type Config struct {
	Env  string // application environment (dev/test/prod)
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // optional
	DBHost string
	DBPort string
	DBName string

	JWTSecret     string // secret used to sign admin tokens
	AdminUser     string // admin login name
	AdminPassHash string // bcrypt hash of the admin password
	AccessTTLMin  int    // admin access token TTL in minutes

	ReservationTTL time.Duration // how long a ticket hold lives
	SweepInterval  time.Duration // expiry sweep scan interval

	PixBaseURL      string // PIX provider API base URL
	PixClientID     string
	PixClientSecret string
	PixKey          string // merchant PIX key charges are addressed to
	PixChargeTTLSec int    // charge lifetime sent to the provider
}

// Load reads configuration from environment variables.  Durations use
// Go duration syntax ("180s", "3m").
func Load() Config {
	return Config{
		Env:  getenv("APP_ENV", "dev"),
		Port: must("APP_PORT"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret:     must("JWT_SECRET"),
		AdminUser:     must("ADMIN_USER"),
		AdminPassHash: must("ADMIN_PASS_HASH"),
		AccessTTLMin:  envInt("ACCESS_TOKEN_TTL_MIN", 60),

		ReservationTTL: envDur("RESERVATION_TTL", 180*time.Second),
		SweepInterval:  envDur("SWEEP_INTERVAL", 10*time.Second),

		PixBaseURL:      must("PIX_BASE_URL"),
		PixClientID:     must("PIX_CLIENT_ID"),
		PixClientSecret: must("PIX_CLIENT_SECRET"),
		PixKey:          must("PIX_KEY"),
		PixChargeTTLSec: envInt("PIX_CHARGE_TTL_SEC", 3600),
	}
}

// must retrieves a required environment variable or aborts startup.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envDur(key string, def time.Duration) time.Duration {
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
