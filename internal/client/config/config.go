// Package config loads garagectl settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/cache"
)

const (
	DefaultAPIURL     = "http://localhost:8080/functions/v1"
	DefaultGatewayKey = "dev-gateway-key"
)

type CacheBackend string

const (
	CacheBolt   CacheBackend = "bolt"
	CacheRedis  CacheBackend = "redis"
	CacheMemory CacheBackend = "memory"
)

type Config struct {
	APIURL         string
	GatewayKey     string
	DataDir        string
	CacheBackend   CacheBackend
	RedisAddr      string
	RedisPassword  string
	CleanupEvery   time.Duration
	RequestTimeout time.Duration
	LogLevel       string
	PolicyFile     string
	Policies       cache.Policies
}

// Load reads the GARAGE_* variables. A bad duration, backend name or policy
// file is an error; an unset variable takes its default.
func Load(log zerolog.Logger) (Config, error) {
	cfg := Config{
		APIURL:        strings.TrimRight(getEnv("GARAGE_API_URL", DefaultAPIURL), "/"),
		GatewayKey:    getEnv("GARAGE_GATEWAY_KEY", DefaultGatewayKey),
		DataDir:       getEnv("GARAGE_DATA_DIR", defaultDataDir()),
		CacheBackend:  CacheBackend(strings.ToLower(getEnv("GARAGE_CACHE_BACKEND", string(CacheBolt)))),
		RedisAddr:     getEnv("GARAGE_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		LogLevel:      getEnv("GARAGE_LOG_LEVEL", "info"),
		PolicyFile:    getEnv("GARAGE_POLICY_FILE", ""),
	}
	var err error
	if cfg.CleanupEvery, err = getDuration("GARAGE_CACHE_CLEANUP_INTERVAL", 5*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.RequestTimeout, err = getDuration("GARAGE_REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return cfg, err
	}
	switch cfg.CacheBackend {
	case CacheBolt, CacheRedis, CacheMemory:
	default:
		return cfg, fmt.Errorf("GARAGE_CACHE_BACKEND: unknown backend %q", cfg.CacheBackend)
	}
	if cfg.Policies, err = cache.LoadPolicies(cfg.PolicyFile); err != nil {
		return cfg, err
	}
	if cfg.GatewayKey == DefaultGatewayKey {
		log.Warn().Msg("using development gateway key; set GARAGE_GATEWAY_KEY")
	}
	return cfg, nil
}

// SessionDir holds tokens, user and registration drafts.
func (c Config) SessionDir() string { return filepath.Join(c.DataDir, "session") }

// CachePath is the bolt file of the persistent cache layer.
func (c Config) CachePath() string { return filepath.Join(c.DataDir, "cache.db") }

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".autosaaz"
	}
	return filepath.Join(home, ".autosaaz")
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
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
