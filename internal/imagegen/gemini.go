package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/tidwall/gjson"

	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/logger"
	"linkedin-autopilot-go/internal/models"
	"linkedin-autopilot-go/internal/services"
)

type GeminiGenerator struct {
	api         *services.GeminiService
	model       string
	aspectRatio string
}

func NewGeminiGenerator(cfg config.ImageConfig) *GeminiGenerator {
	return &GeminiGenerator{
		api:         services.NewGeminiService(cfg.APIKey, cfg.BaseURL, config.Timeout(cfg.TimeoutSeconds)),
		model:       cfg.Model,
		aspectRatio: cfg.AspectRatio,
	}
}

func (g *GeminiGenerator) Provider() string { return config.ProviderGemini }

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (Image, error) {
	op := logger.Get().StartOperation("image_generate")
	op.WithVendor(config.ProviderGemini, g.model)
	op.WithContext("prompt_chars", len(prompt))

	payload := map[string]any{
		"contents": []any{
			map[string]any{"parts": []any{map[string]any{"text": prompt}}},
		},
		"generation_config": map[string]any{
			"response_modalities": []string{"IMAGE"},
			"image_config":        map[string]any{"aspect_ratio": g.aspectRatio},
		},
	}

	body, err := g.api.GenerateContent(ctx, g.model, payload)
	if err != nil {
		op.Fail("Gemini image request failed", err)
		return Image{FinishReason: models.FinishReasonError}, err
	}

	finishReason := gjson.GetBytes(body, "candidates.0.finishReason").String()
	if finishReason == "" {
		finishReason = "UNKNOWN"
	}

	if finishReason == models.FinishReasonNoImage {
		op.WithImage(config.ProviderGemini, "", 0, finishReason)
		op.Fail("Gemini returned NO_IMAGE, possibly a safety filter", ErrNoImage)
		return Image{FinishReason: finishReason}, ErrNoImage
	}
	if block := gjson.GetBytes(body, "promptFeedback.blockReason").String(); block != "" {
		op.WithContext("block_reason", block)
		op.Fail("Gemini blocked the prompt", ErrNoImage)
		return Image{FinishReason: block}, fmt.Errorf("%w: prompt blocked (%s)", ErrNoImage, block)
	}

	var encoded, mimeType string
	for _, part := range gjson.GetBytes(body, "candidates.0.content.parts").Array() {
		if data := part.Get("inlineData.data"); data.Exists() {
			encoded = data.String()
			mimeType = part.Get("inlineData.mimeType").String()
			break
		}
	}
	if encoded == "" {
		err := fmt.Errorf("no inlineData in response (finish reason %s): %s", finishReason, services.Snippet(body, 500))
		op.Fail("Failed to extract image from response", err)
		return Image{FinishReason: finishReason}, err
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		op.Fail("Failed to decode image data", err)
		return Image{FinishReason: finishReason}, fmt.Errorf("failed to decode image data: %w", err)
	}

	op.WithImage(config.ProviderGemini, "", int64(len(data)), finishReason)
	op.Complete("Gemini image generated")
	return Image{Data: data, MimeType: mimeType, FinishReason: finishReason}, nil
}
