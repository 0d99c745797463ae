package llm

import (
	"context"
	"fmt"

	"linkedin-autopilot-go/internal/config"
)

// Client is a single-shot text completion backend.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

type Prompt struct {
	// Purpose names the call in logs and cached exchanges, e.g. "post" or "image_prompt".
	Purpose     string
	System      string
	User        string
	Temperature float64
}

// New builds the client for cfg.Provider. When cacheDir is set every
// exchange is also written there as JSON.
func New(cfg config.LLMConfig, cacheDir string) (Client, error) {
	var client Client
	switch cfg.Provider {
	case config.ProviderGemini, "":
		client = NewGeminiClient(cfg)
	case config.ProviderOpenAI:
		client = NewOpenAIClient(cfg)
	case config.ProviderAnthropic:
		client = NewAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("%w: llm provider %q not supported", config.ErrMissingConfig, cfg.Provider)
	}

	if cacheDir != "" {
		client = WithExchangeCache(client, cacheDir, cfg.Provider, cfg.Model)
	}
	return client, nil
}
