// Package config loads service configuration from an optional YAML file
// with environment variable overrides. Environment always wins so that
// deployments can keep secrets out of the file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	ListenAddr string `yaml:"listenAddr"`
	APIKey     string `yaml:"apiKey"`

	Catalog CatalogConfig `yaml:"catalog"`
	Submit  SubmitConfig  `yaml:"submit"`
	Parse   ParseConfig   `yaml:"parse"`
}

// CatalogConfig points at the three read-only lookup endpoints.
type CatalogConfig struct {
	DirectoryURL   string `yaml:"directoryUrl"`
	TemplatesURL   string `yaml:"templatesUrl"`
	FleetURL       string `yaml:"fleetUrl"`
	User           string `yaml:"user"`
	Pass           string `yaml:"pass"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// SubmitConfig configures the exception write endpoint and the pacing of
// the reconciliation pipeline.
type SubmitConfig struct {
	Endpoint       string `yaml:"endpoint"`
	User           string `yaml:"user"`
	Pass           string `yaml:"pass"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	MaxRetries     int    `yaml:"maxRetries"`
	BackoffMs      int    `yaml:"backoffMs"`
	BackoffMaxMs   int    `yaml:"backoffMaxMs"`
	DelayMs        int    `yaml:"delayMs"`
}

// ParseConfig configures grammar selection.
type ParseConfig struct {
	// SecondSiteCode is the warehouse code whose employees report in the
	// comma-tolerant second-site line format. Every other warehouse uses
	// the strict dotted format.
	SecondSiteCode string `yaml:"secondSiteCode"`
}

// Default returns a Config with built-in defaults applied.
func Default() *Config {
	return &Config{
		ListenAddr: ":8080",
		Catalog: CatalogConfig{
			TimeoutSeconds: 15,
		},
		Submit: SubmitConfig{
			TimeoutSeconds: 15,
			MaxRetries:     0,
			BackoffMs:      500,
			BackoffMaxMs:   5000,
			DelayMs:        500,
		},
		Parse: ParseConfig{
			SecondSiteCode: "B",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// it exists), then environment overrides. A missing file is not an error;
// a malformed file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	if cfg.Submit.DelayMs < 0 {
		return nil, fmt.Errorf("submit.delayMs must be >= 0, got %d", cfg.Submit.DelayMs)
	}
	if cfg.Submit.MaxRetries < 0 {
		return nil, fmt.Errorf("submit.maxRetries must be >= 0, got %d", cfg.Submit.MaxRetries)
	}

	return cfg, nil
}

// applyEnv overlays TKA_* environment variables onto cfg.
func applyEnv(cfg *Config) {
	setString(&cfg.ListenAddr, "TKA_LISTEN_ADDR")
	setString(&cfg.APIKey, "TKA_API_KEY")

	setString(&cfg.Catalog.DirectoryURL, "TKA_DIRECTORY_URL")
	setString(&cfg.Catalog.TemplatesURL, "TKA_TEMPLATES_URL")
	setString(&cfg.Catalog.FleetURL, "TKA_FLEET_URL")
	setString(&cfg.Catalog.User, "TKA_CATALOG_USER")
	setString(&cfg.Catalog.Pass, "TKA_CATALOG_PASS")

	setString(&cfg.Submit.Endpoint, "TKA_SUBMIT_ENDPOINT")
	setString(&cfg.Submit.User, "TKA_SUBMIT_USER")
	setString(&cfg.Submit.Pass, "TKA_SUBMIT_PASS")
	setInt(&cfg.Submit.DelayMs, "TKA_SUBMIT_DELAY_MS")
	setInt(&cfg.Submit.MaxRetries, "TKA_SUBMIT_MAX_RETRIES")

	setString(&cfg.Parse.SecondSiteCode, "TKA_SECOND_SITE")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
