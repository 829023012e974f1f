package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type OIDCProvider struct {
	Id           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	IssuerURL    string   `yaml:"issuer_url"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
}

type Nudge struct {
	ResendAPIKey string `yaml:"resend_api_key"`
	NotifyEmail  string `yaml:"notify_email"`
	FromAddress  string `yaml:"from_address"`
}

// Challenge is one reference-data entry: a short daily challenge attached to
// a virtue label. Entries are ordered per virtue by the Order field.
type Challenge struct {
	Virtue string `yaml:"virtue"`
	Order  int    `yaml:"order"`
	Text   string `yaml:"text"`
}

type Config struct {
	ListenAddr    string         `yaml:"listen_addr"`
	APIBaseURL    string         `yaml:"api_base_url"`
	DBPath        string         `yaml:"db_path"`
	AuthToken     string         `yaml:"auth_token"`
	AuthEnabled   bool           `yaml:"auth_enabled"`
	OIDCProviders []OIDCProvider `yaml:"oidc_providers"`
	Nudge         Nudge          `yaml:"nudge"`
	Challenges    []Challenge    `yaml:"challenges"`
}

// Load reads the yaml config named by ROUTINES_CONFIG (default config.yaml)
// and applies defaults for unset fields.
func Load() (*Config, error) {
	path := os.Getenv("ROUTINES_CONFIG")
	if path == "" {
		path = "config.yaml"
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:8080"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "routines.db"
	}
	if cfg.Nudge.FromAddress == "" {
		cfg.Nudge.FromAddress = "onboarding@resend.dev"
	}

	return cfg, nil
}
