package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `json:"server"`
	Upstream UpstreamConfig `json:"upstream"`
	Webhook  WebhookConfig  `json:"webhook"`
	LLM      LLMConfig      `json:"llm"`
	Cache    CacheConfig    `json:"cache"`
	CORS     CORSConfig     `json:"cors"`
	AskLog   AskLogConfig   `json:"ask_log"`
}

// ServerConfig for HTTP server settings
type ServerConfig struct {
	Port        string `json:"port"`
	ReadTimeout int    `json:"read_timeout_seconds"`
	// WriteTimeout of 0 keeps streaming responses (/ai/chat, /ws) open.
	WriteTimeout int `json:"write_timeout_seconds"`
}

// UpstreamConfig for the content-management backend
type UpstreamConfig struct {
	BaseURL string `json:"base_url"`
	// CanonicalHost rewrites event links that point at the upstream's
	// internal host, e.g. "https://whatson.example.com".
	CanonicalHost string `json:"canonical_host"`
}

// WebhookConfig for the change-notification receiver
type WebhookConfig struct {
	Secret              string `json:"secret"`
	DedupeWindowSeconds int    `json:"dedupe_window_seconds"`
}

// LLMConfig for the chat-completion backend. An empty BaseURL disables the
// streaming paraphraser and /ai/chat falls back to the one-shot answer.
type LLMConfig struct {
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// CacheConfig for the event cache TTLs
type CacheConfig struct {
	ListTTLSeconds   int `json:"list_ttl_seconds"`
	DetailTTLSeconds int `json:"detail_ttl_seconds"`
}

// CORSConfig for browser callers
type CORSConfig struct {
	AllowedOrigin string `json:"allowed_origin"`
}

// AskLogConfig for the optional sqlite ask log. Empty path disables it.
type AskLogConfig struct {
	Path string `json:"path"`
}

// Load reads configuration from file and environment variables
// Environment variables override file values using the pattern WHATSON_SECTION_KEY
func Load(configPath string) (*Config, error) {
	config := &Config{}

	// Load from file if it exists
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyDefaults(config)
	applyEnvOverrides(config)

	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30
	}
	if config.Webhook.DedupeWindowSeconds == 0 {
		config.Webhook.DedupeWindowSeconds = 2
	}
	if config.LLM.TimeoutSeconds == 0 {
		config.LLM.TimeoutSeconds = 30
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "gpt-4o-mini"
	}
	if config.Cache.ListTTLSeconds == 0 {
		config.Cache.ListTTLSeconds = 60
	}
	if config.Cache.DetailTTLSeconds == 0 {
		config.Cache.DetailTTLSeconds = 300
	}
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("WHATSON_SERVER_PORT"); v != "" {
		config.Server.Port = v
	}
	if v := os.Getenv("WHATSON_UPSTREAM_BASE_URL"); v != "" {
		config.Upstream.BaseURL = v
	}
	if v := os.Getenv("WHATSON_UPSTREAM_CANONICAL_HOST"); v != "" {
		config.Upstream.CanonicalHost = v
	}
	if v := os.Getenv("WHATSON_WEBHOOK_SECRET"); v != "" {
		config.Webhook.Secret = v
	}
	if v := os.Getenv("WHATSON_LLM_BASE_URL"); v != "" {
		config.LLM.BaseURL = v
	}
	if v := os.Getenv("WHATSON_LLM_MODEL"); v != "" {
		config.LLM.Model = v
	}
	if v := os.Getenv("WHATSON_LLM_API_KEY"); v != "" {
		config.LLM.APIKey = v
	}
	if v := os.Getenv("WHATSON_ALLOWED_ORIGIN"); v != "" {
		config.CORS.AllowedOrigin = v
	}
	if v := os.Getenv("WHATSON_ASKLOG_PATH"); v != "" {
		config.AskLog.Path = v
	}
}

// Validate checks if required configurations are present
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("missing required configuration: upstream.base_url")
	}
	if c.Webhook.Secret == "" {
		return fmt.Errorf("missing required configuration: webhook.secret")
	}
	return nil
}
