package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds all scheduleflow configuration.
type Config struct {
	Env      string         `toml:"env"` // "production", "development", "test"
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	LLM      LLMConfig      `toml:"llm"`
	Auth     AuthConfig     `toml:"auth"`
	Throttle ThrottleConfig `toml:"throttle"`
	Trigger  TriggerConfig  `toml:"trigger"`
	CORS     CORSConfig     `toml:"cors"`
	OAuth    OAuthConfig    `toml:"oauth"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LLMConfig struct {
	Provider     string `toml:"provider"` // "anthropic", "ollama"
	Model        string `toml:"model"`
	AnthropicKey string `toml:"anthropic_key"`
	OllamaURL    string `toml:"ollama_url"`
	OllamaModel  string `toml:"ollama_model"`
}

type AuthConfig struct {
	Mode       string `toml:"mode"`        // "local" (shared-secret JWT) or "remote" (identity service)
	Secret     string `toml:"secret"`      // HS256 key for local mode
	ServiceURL string `toml:"service_url"` // identity service base URL for remote mode
	TestToken  string `toml:"test_token"`  // fixed bypass token; ignored when Env == "production"
	TestUserID string `toml:"test_user_id"`
}

// GroupLimit is a fixed-window quota for one route group.
type GroupLimit struct {
	WindowSeconds int `toml:"window_seconds"`
	Quota         int `toml:"quota"`
}

type ThrottleConfig struct {
	Enabled  bool       `toml:"enabled"`
	Chat     GroupLimit `toml:"chat"`
	Tasks    GroupLimit `toml:"tasks"`
	Calendar GroupLimit `toml:"calendar"`
	Email    GroupLimit `toml:"email"`
	Generic  GroupLimit `toml:"generic"`
}

type TriggerConfig struct {
	IntervalSeconds int    `toml:"interval_seconds"`
	LookbackSeconds int    `toml:"lookback_seconds"`
	Threshold       int    `toml:"threshold"`
	EventType       string `toml:"event_type"`
	CooldownSeconds int    `toml:"cooldown_seconds"`
	MaxTokens       int    `toml:"max_tokens"`
}

type CORSConfig struct {
	Origin string `toml:"origin"`
}

type OAuthConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
	RedirectURL  string `toml:"redirect_url"`
}

// Default returns a Config with sensible defaults. AI-heavy route groups
// get shorter windows and lower quotas than the generic API.
func Default() Config {
	return Config{
		Env: "development",
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38800,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		LLM: LLMConfig{
			Provider: "anthropic",
			Model:    "claude-haiku-4-5-20251001",
		},
		Auth: AuthConfig{
			Mode:       "local",
			TestUserID: "test-user",
		},
		Throttle: ThrottleConfig{
			Enabled:  true,
			Chat:     GroupLimit{WindowSeconds: 60, Quota: 10},
			Tasks:    GroupLimit{WindowSeconds: 60, Quota: 10},
			Calendar: GroupLimit{WindowSeconds: 60, Quota: 10},
			Email:    GroupLimit{WindowSeconds: 60, Quota: 5},
			Generic:  GroupLimit{WindowSeconds: 300, Quota: 300},
		},
		Trigger: TriggerConfig{
			IntervalSeconds: 300,
			LookbackSeconds: 1800,
			Threshold:       4,
			EventType:       "home_opened",
			CooldownSeconds: 1800,
			MaxTokens:       256,
		},
		CORS: CORSConfig{
			Origin: "*",
		},
	}
}

// Load reads configuration from an optional TOML file, then applies
// environment overrides. A missing file is not an error — defaults and
// the environment fully describe a deployment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("decode config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SCHEDULEFLOW_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.Provider = "anthropic"
		cfg.LLM.AnthropicKey = v
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		cfg.Auth.Mode = "local"
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("AUTH_SERVICE_URL"); v != "" {
		cfg.Auth.Mode = "remote"
		cfg.Auth.ServiceURL = v
	}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		cfg.CORS.Origin = v
	}
	if v := os.Getenv("OAUTH_CLIENT_ID"); v != "" {
		cfg.OAuth.ClientID = v
	}
	if v := os.Getenv("OAUTH_CLIENT_SECRET"); v != "" {
		cfg.OAuth.ClientSecret = v
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
