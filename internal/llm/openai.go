package llm

import (
	"context"
	"errors"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/logger"
)

// ErrEmptyResponse is returned when a vendor answers without any text.
var ErrEmptyResponse = errors.New("llm returned empty response")

// OpenAIClient implements Client using the official openai-go SDK (chat completions).
type OpenAIClient struct {
	client    openai.Client
	model     string
	maxTokens int
}

func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(config.Timeout(cfg.TimeoutSeconds)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIClient{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (o *OpenAIClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	op := logger.Get().StartOperation("llm_complete")
	op.WithVendor(config.ProviderOpenAI, o.model)
	op.WithContext("purpose", prompt.Purpose)

	var msgs []openai.ChatCompletionMessageParamUnion
	if prompt.System != "" {
		msgs = append(msgs, openai.SystemMessage(prompt.System))
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    msgs,
		Temperature: openai.Float(prompt.Temperature),
	}
	if o.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.maxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		op.Fail("OpenAI completion failed", err)
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		op.Fail("Empty completion", ErrEmptyResponse)
		return "", ErrEmptyResponse
	}

	text := resp.Choices[0].Message.Content
	op.WithContext("response_chars", len(text))
	op.WithContext("finish_reason", resp.Choices[0].FinishReason)
	op.Complete("OpenAI completion received")
	return text, nil
}
