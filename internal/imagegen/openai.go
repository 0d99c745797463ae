package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/logger"
	"linkedin-autopilot-go/internal/models"
)

type OpenAIGenerator struct {
	client     openai.Client
	model      string
	size       string
	httpClient *http.Client
}

func NewOpenAIGenerator(cfg config.ImageConfig) *OpenAIGenerator {
	timeout := config.Timeout(cfg.TimeoutSeconds)
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIGenerator{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		size:       cfg.Size,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (o *OpenAIGenerator) Provider() string { return config.ProviderOpenAI }

func (o *OpenAIGenerator) Generate(ctx context.Context, prompt string) (Image, error) {
	op := logger.Get().StartOperation("image_generate")
	op.WithVendor(config.ProviderOpenAI, o.model)
	op.WithContext("prompt_chars", len(prompt))
	op.WithContext("size", o.size)

	resp, err := o.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(o.model),
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize(o.size),
	})
	if err != nil {
		op.Fail("OpenAI image request failed", err)
		return Image{FinishReason: models.FinishReasonError}, err
	}
	if len(resp.Data) == 0 {
		op.Fail("OpenAI returned no image data", ErrNoImage)
		return Image{FinishReason: models.FinishReasonNoImage}, ErrNoImage
	}

	first := resp.Data[0]
	var data []byte
	switch {
	case first.B64JSON != "":
		data, err = base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			op.Fail("Failed to decode image data", err)
			return Image{FinishReason: models.FinishReasonError}, fmt.Errorf("failed to decode image data: %w", err)
		}
	case first.URL != "":
		op.WithContext("download", true)
		data, err = o.download(ctx, first.URL)
		if err != nil {
			op.Fail("Failed to download image", err)
			return Image{FinishReason: models.FinishReasonError}, err
		}
	default:
		op.Fail("OpenAI response has neither b64_json nor url", ErrNoImage)
		return Image{FinishReason: models.FinishReasonNoImage}, ErrNoImage
	}

	op.WithImage(config.ProviderOpenAI, "", int64(len(data)), models.FinishReasonStop)
	op.Complete("OpenAI image generated")
	return Image{Data: data, MimeType: "image/png", FinishReason: models.FinishReasonStop}, nil
}

func (o *OpenAIGenerator) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("image download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}
