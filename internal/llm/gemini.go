package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/logger"
	"linkedin-autopilot-go/internal/services"
)

type GeminiClient struct {
	api       *services.GeminiService
	model     string
	maxTokens int
}

func NewGeminiClient(cfg config.LLMConfig) *GeminiClient {
	return &GeminiClient{
		api:       services.NewGeminiService(cfg.APIKey, cfg.BaseURL, config.Timeout(cfg.TimeoutSeconds)),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (g *GeminiClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	op := logger.Get().StartOperation("llm_complete")
	op.WithVendor(config.ProviderGemini, g.model)
	op.WithContext("purpose", prompt.Purpose)

	generationConfig := map[string]any{"temperature": prompt.Temperature}
	if g.maxTokens > 0 {
		generationConfig["maxOutputTokens"] = g.maxTokens
	}
	payload := map[string]any{
		"contents": []any{
			map[string]any{
				"role":  "user",
				"parts": []any{map[string]any{"text": prompt.User}},
			},
		},
		"generationConfig": generationConfig,
	}
	if prompt.System != "" {
		payload["systemInstruction"] = map[string]any{
			"parts": []any{map[string]any{"text": prompt.System}},
		}
	}

	body, err := g.api.GenerateContent(ctx, g.model, payload)
	if err != nil {
		op.Fail("Gemini completion failed", err)
		return "", err
	}

	var sb strings.Builder
	for _, part := range gjson.GetBytes(body, "candidates.0.content.parts").Array() {
		sb.WriteString(part.Get("text").String())
	}
	text := sb.String()

	if strings.TrimSpace(text) == "" {
		reason := gjson.GetBytes(body, "candidates.0.finishReason").String()
		if reason == "" {
			reason = gjson.GetBytes(body, "promptFeedback.blockReason").String()
		}
		err := fmt.Errorf("gemini returned no text (reason %q): %s", reason, services.Snippet(body, 500))
		op.Fail("Empty completion", err)
		return "", errors.Join(ErrEmptyResponse, err)
	}

	op.WithContext("response_chars", len(text))
	op.Complete("Gemini completion received")
	return text, nil
}
