package imagegen

import (
	"context"
	"errors"
	"fmt"

	"linkedin-autopilot-go/internal/config"
)

// ErrNoImage is returned when the vendor answers successfully but produces no image.
var ErrNoImage = errors.New("no image produced")

// Image is raw vendor output. FinishReason is set on failures too when the vendor reported one.
type Image struct {
	Data         []byte
	MimeType     string
	FinishReason string
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (Image, error)
	Provider() string
}

func New(cfg config.ImageConfig) (Generator, error) {
	switch cfg.Provider {
	case config.ProviderGemini, "":
		return NewGeminiGenerator(cfg), nil
	case config.ProviderOpenAI:
		return NewOpenAIGenerator(cfg), nil
	}
	return nil, fmt.Errorf("%w: image provider %q not supported", config.ErrMissingConfig, cfg.Provider)
}
