// Package config loads bridge settings from the environment and derives the
// configuration fingerprint that identifies one logical catalog instance.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iptvbridge/iptv-bridge/internal/safeurl"
)

// Config holds provider, EPG, cache, and serving settings.
type Config struct {
	// Provider. Kind selects the source implementation.
	ProviderKind string // "xtream" | "m3u"

	// Xtream provider.
	XtreamBaseURL string // e.g. http://provider:8080
	XtreamUser    string
	XtreamPass    string
	StreamExt     string // "m3u8" or "ts"

	// Playlist provider.
	M3UURL string

	// EPG.
	EPGURL         string
	EPGOffsetHours float64 // applied to naive XMLTV timestamps; clamped downstream

	// Feature flags that affect fetched content.
	LiveOnly bool // skip VOD and series

	// Cache.
	CacheTTL        time.Duration
	CacheMinRefresh time.Duration
	CacheMaxEntries int

	// Shared store (optional; pick at most one).
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string

	// Timeouts.
	CoreFeedTimeout time.Duration // fatal feeds
	AuxFeedTimeout  time.Duration // best-effort feeds; independent and shorter

	// Serving.
	ListenAddr      string
	RefreshInterval time.Duration // 0 disables the background refresh ticker
	LogLevel        string
}

// Load reads configuration from IPTV_BRIDGE_* environment variables. Call
// LoadEnvFile(".env") first to honor a local env file.
func Load() *Config {
	c := &Config{
		ProviderKind:    strings.ToLower(getEnv("IPTV_BRIDGE_PROVIDER_KIND", "m3u")),
		XtreamBaseURL:   strings.TrimSuffix(os.Getenv("IPTV_BRIDGE_XTREAM_URL"), "/"),
		XtreamUser:      os.Getenv("IPTV_BRIDGE_XTREAM_USER"),
		XtreamPass:      os.Getenv("IPTV_BRIDGE_XTREAM_PASS"),
		StreamExt:       getEnv("IPTV_BRIDGE_STREAM_EXT", "m3u8"),
		M3UURL:          os.Getenv("IPTV_BRIDGE_M3U_URL"),
		EPGURL:          os.Getenv("IPTV_BRIDGE_EPG_URL"),
		EPGOffsetHours:  getEnvFloat("IPTV_BRIDGE_EPG_OFFSET_HOURS", 0),
		LiveOnly:        getEnvBool("IPTV_BRIDGE_LIVE_ONLY", false),
		CacheTTL:        getEnvDuration("IPTV_BRIDGE_CACHE_TTL", 30*time.Minute),
		CacheMinRefresh: getEnvDuration("IPTV_BRIDGE_CACHE_MIN_REFRESH", time.Minute),
		CacheMaxEntries: getEnvInt("IPTV_BRIDGE_CACHE_MAX_ENTRIES", 16),
		RedisAddr:       os.Getenv("IPTV_BRIDGE_REDIS_ADDR"),
		RedisPassword:   os.Getenv("IPTV_BRIDGE_REDIS_PASSWORD"),
		RedisDB:         getEnvInt("IPTV_BRIDGE_REDIS_DB", 0),
		SQLitePath:      os.Getenv("IPTV_BRIDGE_SQLITE_PATH"),
		CoreFeedTimeout: getEnvDuration("IPTV_BRIDGE_CORE_TIMEOUT", 90*time.Second),
		AuxFeedTimeout:  getEnvDuration("IPTV_BRIDGE_AUX_TIMEOUT", 30*time.Second),
		ListenAddr:      getEnv("IPTV_BRIDGE_LISTEN", ":7010"),
		RefreshInterval: getEnvDuration("IPTV_BRIDGE_REFRESH_INTERVAL", 0),
		LogLevel:        os.Getenv("IPTV_BRIDGE_LOG_LEVEL"),
	}
	if c.CacheMaxEntries <= 0 {
		c.CacheMaxEntries = 16
	}
	return c
}

// Validate rejects configurations that cannot possibly ingest anything.
func (c *Config) Validate() error {
	switch c.ProviderKind {
	case "xtream":
		if !safeurl.IsHTTPOrHTTPS(c.XtreamBaseURL) {
			return fmt.Errorf("IPTV_BRIDGE_XTREAM_URL: invalid or non-http(s) URL %q", c.XtreamBaseURL)
		}
		if c.XtreamUser == "" || c.XtreamPass == "" {
			return fmt.Errorf("xtream provider requires IPTV_BRIDGE_XTREAM_USER and IPTV_BRIDGE_XTREAM_PASS")
		}
	case "m3u":
		if !safeurl.IsHTTPOrHTTPS(c.M3UURL) {
			return fmt.Errorf("IPTV_BRIDGE_M3U_URL: invalid or non-http(s) URL %q", c.M3UURL)
		}
	default:
		return fmt.Errorf("unknown provider kind %q", c.ProviderKind)
	}
	if c.EPGURL != "" && !safeurl.IsHTTPOrHTTPS(c.EPGURL) {
		return fmt.Errorf("IPTV_BRIDGE_EPG_URL: invalid or non-http(s) URL %q", c.EPGURL)
	}
	return nil
}

// Fingerprint hashes the subset of fields that affect fetched content:
// source URLs, credentials, and feature flags. Cache layout, timeouts, and
// serving settings deliberately stay out so tuning them does not invalidate
// cached snapshots.
func (c *Config) Fingerprint() string {
	h := sha256.New()
	for _, part := range []string{
		c.ProviderKind,
		c.XtreamBaseURL, c.XtreamUser, c.XtreamPass, c.StreamExt,
		c.M3UURL,
		c.EPGURL, strconv.FormatFloat(c.EPGOffsetHours, 'g', -1, 64),
		strconv.FormatBool(c.LiveOnly),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
