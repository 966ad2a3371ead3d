package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthHMACSecret string
	// AuthRequired guards the write and results routes with a bearer token.
	AuthRequired bool

	CORSOrigins []string

	LogFormat string // json|text
	LogFile   string
	LogDebug  bool

	PlanCacheSize int

	// Defaults for requests that do not name a selection policy.
	DefaultTiePolicy    string
	DefaultExpiryPolicy string

	SiteID string
}

// Load reads the given .env files, if present, then the environment.
// Variables already set in the environment win over file values.
func Load(files ...string) Config {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("env file not loaded", "file", f, "err", err)
		}
	}
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		HTTPAddr:            envOr("HTTP_ADDR", ":8080"),
		DBDriver:            envOr("DB_DRIVER", "sqlite"),
		DBDSN:               envOr("DB_DSN", ""),
		AuthHMACSecret:      envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AuthRequired:        envBool("AUTH_REQUIRED", true),
		CORSOrigins:         csvOr("CORS_ORIGINS", "http://localhost:3000"),
		LogFormat:           envOr("LOG_FORMAT", "json"),
		LogFile:             envOr("LOG_FILE", ""),
		LogDebug:            envBool("LOG_DEBUG", false),
		PlanCacheSize:       envInt("PLAN_CACHE_SIZE", 256),
		DefaultTiePolicy:    envOr("DEFAULT_TIE_POLICY", "best"),
		DefaultExpiryPolicy: envOr("DEFAULT_EXPIRY_POLICY", "prefer_non_expired"),
		SiteID:              envOr("SITE_ID", "local"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
