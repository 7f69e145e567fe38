package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/varoOP/stashplex/internal/domain"
)

// Load builds the immutable agent configuration from layered sources:
// 1. Config file (config.toml / config.yaml, optional)
// 2. Environment variables (STASHPLEX_*), which take precedence even when
//    set to an empty string
func Load() (*domain.Config, error) {
	cfg := &domain.Config{
		Host:     viper.GetString("host"),
		Port:     viper.GetInt("port"),
		BaseURL:  viper.GetString("base_url"),
		StashURL: strings.TrimRight(viper.GetString("stash_url"), "/"),

		StashAPIKey: viper.GetString("stash_api_key"),
		CacheTTL:    viper.GetInt("cache_ttl"),
		PosterMode:  viper.GetBool("poster_mode"),

		PlexURL:   strings.TrimRight(viper.GetString("plex_url"), "/"),
		PlexToken: viper.GetString("plex_token"),
		LogLevel:  viper.GetString("log_level"),
	}

	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 7979
	}
	if !viper.IsSet("cache_ttl") {
		cfg.CacheTTL = 300
	}

	if cfg.StashURL == "" {
		return nil, fmt.Errorf("stash_url is required (set via config file or STASHPLEX_STASH_URL environment variable)")
	}
	if _, err := url.Parse(cfg.StashURL); err != nil {
		return nil, fmt.Errorf("invalid stash_url %q: %w", cfg.StashURL, err)
	}
	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("cache_ttl must be >= 0 (0 disables caching)")
	}
	if cfg.PlexURL != "" {
		if _, err := url.Parse(cfg.PlexURL); err != nil {
			return nil, fmt.Errorf("invalid plex_url %q: %w", cfg.PlexURL, err)
		}
	}

	return cfg, nil
}
