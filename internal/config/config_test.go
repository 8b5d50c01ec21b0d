package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_defaults(t *testing.T) {
	os.Clearenv()
	c := Load()
	if c.ProviderKind != "m3u" {
		t.Errorf("ProviderKind default: got %q", c.ProviderKind)
	}
	if c.StreamExt != "m3u8" {
		t.Errorf("StreamExt default: got %q", c.StreamExt)
	}
	if c.CacheTTL != 30*time.Minute {
		t.Errorf("CacheTTL default: got %v", c.CacheTTL)
	}
	if c.CacheMinRefresh != time.Minute {
		t.Errorf("CacheMinRefresh default: got %v", c.CacheMinRefresh)
	}
	if c.CacheMaxEntries != 16 {
		t.Errorf("CacheMaxEntries default: got %d", c.CacheMaxEntries)
	}
	if c.CoreFeedTimeout != 90*time.Second {
		t.Errorf("CoreFeedTimeout default: got %v", c.CoreFeedTimeout)
	}
	if c.AuxFeedTimeout != 30*time.Second {
		t.Errorf("AuxFeedTimeout default: got %v", c.AuxFeedTimeout)
	}
	if c.ListenAddr != ":7010" {
		t.Errorf("ListenAddr default: got %q", c.ListenAddr)
	}
	if c.RefreshInterval != 0 {
		t.Errorf("RefreshInterval default: got %v", c.RefreshInterval)
	}
	if c.LiveOnly {
		t.Error("LiveOnly should default false")
	}
}

func TestLoad_explicitValues(t *testing.T) {
	os.Clearenv()
	os.Setenv("IPTV_BRIDGE_PROVIDER_KIND", "XTREAM")
	os.Setenv("IPTV_BRIDGE_XTREAM_URL", "http://provider:8080/")
	os.Setenv("IPTV_BRIDGE_XTREAM_USER", "u")
	os.Setenv("IPTV_BRIDGE_XTREAM_PASS", "p")
	os.Setenv("IPTV_BRIDGE_EPG_OFFSET_HOURS", "2.5")
	os.Setenv("IPTV_BRIDGE_LIVE_ONLY", "yes")
	os.Setenv("IPTV_BRIDGE_CACHE_TTL", "10m")
	os.Setenv("IPTV_BRIDGE_REFRESH_INTERVAL", "1h")
	c := Load()
	if c.ProviderKind != "xtream" {
		t.Errorf("ProviderKind: got %q, want lowered", c.ProviderKind)
	}
	if c.XtreamBaseURL != "http://provider:8080" {
		t.Errorf("XtreamBaseURL: got %q, want trailing slash stripped", c.XtreamBaseURL)
	}
	if c.EPGOffsetHours != 2.5 {
		t.Errorf("EPGOffsetHours: got %v", c.EPGOffsetHours)
	}
	if !c.LiveOnly {
		t.Error("LiveOnly should be true for yes")
	}
	if c.CacheTTL != 10*time.Minute {
		t.Errorf("CacheTTL: got %v", c.CacheTTL)
	}
	if c.RefreshInterval != time.Hour {
		t.Errorf("RefreshInterval: got %v", c.RefreshInterval)
	}
}

func TestLoad_garbageValuesFallBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("IPTV_BRIDGE_CACHE_TTL", "soon")
	os.Setenv("IPTV_BRIDGE_EPG_OFFSET_HOURS", "two")
	os.Setenv("IPTV_BRIDGE_CACHE_MAX_ENTRIES", "-4")
	c := Load()
	if c.CacheTTL != 30*time.Minute {
		t.Errorf("CacheTTL: got %v, want default on parse failure", c.CacheTTL)
	}
	if c.EPGOffsetHours != 0 {
		t.Errorf("EPGOffsetHours: got %v, want default on parse failure", c.EPGOffsetHours)
	}
	if c.CacheMaxEntries != 16 {
		t.Errorf("CacheMaxEntries: got %d, want default for non-positive", c.CacheMaxEntries)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid m3u", func(c *Config) {
			c.ProviderKind = "m3u"
			c.M3UURL = "http://host/list.m3u"
		}, false},
		{"m3u missing url", func(c *Config) {
			c.ProviderKind = "m3u"
		}, true},
		{"m3u non-http scheme", func(c *Config) {
			c.ProviderKind = "m3u"
			c.M3UURL = "file:///etc/passwd"
		}, true},
		{"valid xtream", func(c *Config) {
			c.ProviderKind = "xtream"
			c.XtreamBaseURL = "http://provider:8080"
			c.XtreamUser = "u"
			c.XtreamPass = "p"
		}, false},
		{"xtream missing creds", func(c *Config) {
			c.ProviderKind = "xtream"
			c.XtreamBaseURL = "http://provider:8080"
		}, true},
		{"unknown kind", func(c *Config) {
			c.ProviderKind = "rtsp"
		}, true},
		{"bad epg url", func(c *Config) {
			c.ProviderKind = "m3u"
			c.M3UURL = "http://host/list.m3u"
			c.EPGURL = "ftp://host/epg.xml"
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Config{}
			tc.mutate(c)
			err := c.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	base := func() *Config {
		return &Config{ProviderKind: "m3u", M3UURL: "http://host/list.m3u", StreamExt: "m3u8"}
	}

	a, b := base(), base()
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("identical configs must share a fingerprint")
	}

	b.M3UURL = "http://other/list.m3u"
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("source URL change must change the fingerprint")
	}

	c := base()
	c.LiveOnly = true
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("content flag change must change the fingerprint")
	}

	// Cache tuning and serving settings stay out of the fingerprint.
	d := base()
	d.CacheTTL = time.Hour
	d.ListenAddr = ":9999"
	d.CacheMaxEntries = 99
	if a.Fingerprint() != d.Fingerprint() {
		t.Error("cache/serving tuning must not change the fingerprint")
	}

	if got := len(a.Fingerprint()); got != 16 {
		t.Errorf("fingerprint length = %d, want 16", got)
	}
}

func TestFingerprint_fieldBoundaries(t *testing.T) {
	// "ab"+"c" and "a"+"bc" in adjacent fields must not collide.
	a := &Config{XtreamUser: "ab", XtreamPass: "c"}
	b := &Config{XtreamUser: "a", XtreamPass: "bc"}
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("field boundary collision")
	}
}
