package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/logger"
)

type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

func NewAnthropicClient(cfg config.LLMConfig) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(config.Timeout(cfg.TimeoutSeconds)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{
		client:    &client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (c *AnthropicClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	op := logger.Get().StartOperation("llm_complete")
	op.WithVendor(config.ProviderAnthropic, c.model)
	op.WithContext("purpose", prompt.Purpose)

	maxTokens := int64(c.maxTokens)
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(prompt.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: prompt.System}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		op.Fail("Claude completion failed", err)
		return "", err
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		op.Fail("Empty completion", ErrEmptyResponse)
		return "", ErrEmptyResponse
	}

	op.WithContext("response_chars", len(text))
	op.WithContext("stop_reason", string(message.StopReason))
	op.Complete("Claude completion received")
	return text, nil
}
