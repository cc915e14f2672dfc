package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/config"
)

// Client is the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (*Response, error)
}

// Response holds the result of an LLM completion.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// ProviderError is a failed provider call. Status 0 means the request
// never produced an HTTP response (network error, timeout).
type ProviderError struct {
	Status int
	Msg    string
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("provider: %s", e.Msg)
	}
	return fmt.Sprintf("provider status %d: %s", e.Status, e.Msg)
}

// Transient reports whether the failure is worth retrying: network
// errors, timeouts, and provider-side 5xx. Client errors are terminal.
func (e *ProviderError) Transient() bool {
	return e.Status == 0 || e.Status >= 500
}

// NewClient creates an LLM client based on the config provider setting.
func NewClient(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, errors.New("anthropic provider requires ANTHROPIC_API_KEY or config")
		}
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return NewAnthropic(cfg.AnthropicKey, model), nil
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.OllamaModel
		if model == "" {
			model = "llama3.2"
		}
		return NewOllama(url, model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}
