package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ClientConfig holds the chat CLI's credentials and preferences. It is loaded
// and saved explicitly; nothing reads it as ambient global state.
type ClientConfig struct {
	ServerURL string `yaml:"server_url"`

	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`

	// Per-provider API keys, keyed by provider name.
	APIKeys map[string]string `yaml:"api_keys"`

	SearchAPIKey string  `yaml:"search_api_key,omitempty"`
	Temperature  float64 `yaml:"temperature"`
	EnableSearch bool    `yaml:"enable_search"`
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ServerURL:    "http://localhost:8080",
		APIKeys:      map[string]string{},
		Temperature:  0.7,
		EnableSearch: true,
	}
}

// DefaultClientConfigPath returns ~/.streamchat.yaml.
func DefaultClientConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".streamchat.yaml"), nil
}

// LoadClient reads the YAML config at path. A missing file yields the defaults.
func LoadClient(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	if cfg.APIKeys == nil {
		cfg.APIKeys = map[string]string{}
	}
	return cfg, nil
}

// SaveClient writes the config back with owner-only permissions (it holds keys).
func SaveClient(path string, cfg ClientConfig) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// APIKey returns the stored key for a provider, if any.
func (c ClientConfig) APIKey(provider string) string {
	if c.APIKeys == nil {
		return ""
	}
	return c.APIKeys[provider]
}
