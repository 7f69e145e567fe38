package domain

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the process-wide configuration. It is constructed once at
// startup by internal/config and never mutated afterwards; every component
// receives it through its constructor.
type Config struct {
	Host    string `toml:"host" mapstructure:"host"`
	Port    int    `toml:"port" mapstructure:"port"`
	BaseURL string `toml:"base_url" mapstructure:"base_url"`

	StashURL    string `toml:"stash_url" mapstructure:"stash_url"`
	StashAPIKey string `toml:"stash_api_key" mapstructure:"stash_api_key"`

	// CacheTTL is the upstream-response cache lifetime in seconds.
	// 0 disables caching entirely.
	CacheTTL int `toml:"cache_ttl" mapstructure:"cache_ttl"`

	// PosterMode reformats wide screenshots into 2:3 posters with black bars.
	PosterMode bool `toml:"poster_mode" mapstructure:"poster_mode"`

	PlexURL   string `toml:"plex_url" mapstructure:"plex_url"`
	PlexToken string `toml:"plex_token" mapstructure:"plex_token"`

	LogLevel string `toml:"log_level" mapstructure:"log_level"`
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PublicBaseURL returns the base URL Plex should use to reach this agent.
// When no base_url is configured it is derived from the listen address,
// substituting a loopback host for the 0.0.0.0 wildcard.
func (c *Config) PublicBaseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	host := c.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Port)
}

// TTL returns the cache lifetime as a duration.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// PosterUploadEnabled reports whether posters should be pushed directly to
// the Plex Media Server, bypassing images.plex.tv (which cannot reach
// private LAN addresses).
func (c *Config) PosterUploadEnabled() bool {
	return c.PosterMode && c.PlexURL != "" && c.PlexToken != ""
}
