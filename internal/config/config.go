// Package config holds the engine's immutable configuration. It is
// constructed once at startup and passed into the session manager and job
// adapter; no component reads process-wide mutable state.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"portalprobe/internal/browser"
	"portalprobe/internal/retry"
)

// Config is the full engine configuration.
type Config struct {
	Portal   PortalConfig   `yaml:"portal"`
	Browser  BrowserConfig  `yaml:"browser"`
	Retry    RetryConfig    `yaml:"retry"`
	Evidence EvidenceConfig `yaml:"evidence"`
}

// PortalConfig locates and authenticates against the target portal.
// Credentials come from the environment, never from the config file.
type PortalConfig struct {
	BaseURL  string `yaml:"base_url" env:"PORTAL_BASE_URL"`
	Username string `yaml:"-" env:"PORTAL_USERNAME"`
	Password string `yaml:"-" env:"PORTAL_PASSWORD"`
}

// BrowserConfig configures the driver.
type BrowserConfig struct {
	Bin                 string `yaml:"bin" env:"BROWSER_BIN"`
	Headless            bool   `yaml:"headless" env:"BROWSER_HEADLESS"`
	ViewportWidth       int    `yaml:"viewport_width"`
	ViewportHeight      int    `yaml:"viewport_height"`
	PageLoadTimeoutMs   int    `yaml:"page_load_timeout_ms"`
	NavigationTimeoutMs int    `yaml:"navigation_timeout_ms"`
	ElementTimeoutMs    int    `yaml:"element_timeout_ms"`
}

// RetryConfig bounds the login/search resilience wrapper.
type RetryConfig struct {
	MaxAttempts  int `yaml:"max_attempts"`
	BackoffMinMs int `yaml:"backoff_min_ms"`
	BackoffMaxMs int `yaml:"backoff_max_ms"`
}

// EvidenceConfig controls snapshot persistence.
type EvidenceConfig struct {
	Dir string `yaml:"dir" env:"EVIDENCE_DIR"`
}

// Default returns the engine defaults. All portal waits fall inside the
// 10–60s band.
func Default() Config {
	return Config{
		Browser: BrowserConfig{
			Headless:            true,
			ViewportWidth:       1920,
			ViewportHeight:      1080,
			PageLoadTimeoutMs:   60000,
			NavigationTimeoutMs: 30000,
			ElementTimeoutMs:    10000,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			BackoffMinMs: 2000,
			BackoffMaxMs: 10000,
		},
		Evidence: EvidenceConfig{
			Dir: "evidence",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file (if path is
// non-empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("environment overrides: %w", err)
	}
	return cfg, nil
}

// BrowserConfig converts to the session manager's config snapshot.
func (c Config) BrowserConfig() browser.Config {
	return browser.Config{
		PortalURL:         c.Portal.BaseURL,
		Bin:               c.Browser.Bin,
		Headless:          c.Browser.Headless,
		ViewportWidth:     c.Browser.ViewportWidth,
		ViewportHeight:    c.Browser.ViewportHeight,
		PageLoadTimeout:   time.Duration(c.Browser.PageLoadTimeoutMs) * time.Millisecond,
		NavigationTimeout: time.Duration(c.Browser.NavigationTimeoutMs) * time.Millisecond,
		ElementTimeout:    time.Duration(c.Browser.ElementTimeoutMs) * time.Millisecond,
	}
}

// RetryPolicy converts to the resilience layer's policy value.
func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		Wait: retry.Exponential(
			time.Duration(c.Retry.BackoffMinMs)*time.Millisecond,
			time.Duration(c.Retry.BackoffMaxMs)*time.Millisecond,
		),
	}
}
