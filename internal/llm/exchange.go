package llm

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	"linkedin-autopilot-go/internal/utils"
)

// Exchange is a prompt/response pair kept for debugging.
type Exchange struct {
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Purpose   string    `json:"purpose,omitempty"`
	System    string    `json:"system,omitempty"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Error     string    `json:"error,omitempty"`
}

// SaveExchange writes exchange to a timestamped file in dir and returns its path.
func SaveExchange(dir string, exchange Exchange) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	// dashes instead of colons for filesystem compatibility
	filename := exchange.Timestamp.Format("2006-01-02T15-04-05.000")
	if exchange.Purpose != "" {
		filename += "-" + utils.SanitizeFilename(exchange.Purpose)
	}
	path := filepath.Join(dir, filename+".json")

	data, err := json.MarshalIndent(exchange, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

type cachingClient struct {
	next     Client
	dir      string
	provider string
	model    string
}

// WithExchangeCache wraps next so that every call is saved under dir.
// Cache failures are logged and never fail the call.
func WithExchangeCache(next Client, dir, provider, model string) Client {
	return &cachingClient{next: next, dir: dir, provider: provider, model: model}
}

func (c *cachingClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	response, err := c.next.Complete(ctx, prompt)

	exchange := Exchange{
		Timestamp: time.Now(),
		Provider:  c.provider,
		Model:     c.model,
		Purpose:   prompt.Purpose,
		System:    prompt.System,
		Prompt:    prompt.User,
		Response:  response,
	}
	if err != nil {
		exchange.Error = err.Error()
	}
	if path, saveErr := SaveExchange(c.dir, exchange); saveErr != nil {
		log.Printf("Failed to cache LLM exchange: %v", saveErr)
	} else {
		log.Printf("Cached LLM exchange to: %s", path)
	}

	return response, err
}
