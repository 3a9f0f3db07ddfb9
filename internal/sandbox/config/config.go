package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	devJWTSecret  = "dev-secret-change"
	devGatewayKey = "dev-gateway-key"
)

type Config struct {
	HTTPAddr            string
	DatabaseDSN         string
	JWTSecret           string
	GatewayKey          string
	MaxRequestBytes     int64
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	RegistrationTTL     time.Duration
	RequireVerification bool
	LogLevel            string
}

// Load reads the SANDBOX_* variables. The defaults match garagectl's, so a
// client with no configuration talks to a sandbox with none.
func Load(log zerolog.Logger) (Config, error) {
	cfg := Config{
		HTTPAddr:    getEnv("SANDBOX_HTTP_ADDR", ":8080"),
		DatabaseDSN: getEnv("SANDBOX_DB_DSN", "file:sandbox.db?cache=shared&mode=rwc"),
		JWTSecret:   getEnv("SANDBOX_JWT_SECRET", devJWTSecret),
		GatewayKey:  getEnv("SANDBOX_GATEWAY_KEY", devGatewayKey),
		LogLevel:    getEnv("SANDBOX_LOG_LEVEL", "info"),
		RefreshTTL:  30 * 24 * time.Hour,
	}
	var err error
	if cfg.MaxRequestBytes, err = getInt("SANDBOX_MAX_REQUEST_BYTES", 11<<20); err != nil {
		return cfg, err
	}
	if cfg.AccessTTL, err = getDuration("SANDBOX_ACCESS_TTL", time.Hour); err != nil {
		return cfg, err
	}
	if cfg.RegistrationTTL, err = getDuration("SANDBOX_REGISTRATION_TTL", 30*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.RequireVerification, err = strconv.ParseBool(getEnv("SANDBOX_REQUIRE_VERIFICATION", "true")); err != nil {
		return cfg, fmt.Errorf("SANDBOX_REQUIRE_VERIFICATION: %w", err)
	}
	if cfg.JWTSecret == devJWTSecret {
		log.Warn().Msg("using development JWT secret; set SANDBOX_JWT_SECRET")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int64) (int64, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: invalid size %q", key, v)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}
