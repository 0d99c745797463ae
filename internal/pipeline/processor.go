// Package pipeline implements the five stages and the files they exchange.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/content"
	"linkedin-autopilot-go/internal/drive"
	"linkedin-autopilot-go/internal/imagegen"
	"linkedin-autopilot-go/internal/linkedin"
	"linkedin-autopilot-go/internal/llm"
	"linkedin-autopilot-go/internal/logger"
	"linkedin-autopilot-go/internal/models"
	"linkedin-autopilot-go/internal/persona"
	"linkedin-autopilot-go/internal/services"
	"linkedin-autopilot-go/internal/themes"
)

// ErrMissingInput marks an absent input file or a required field missing from it.
var ErrMissingInput = errors.New("missing input")

const (
	PostFile          = "linkedin_post.json"
	ImageFile         = "linkedin_image.png"
	ImageResultFile   = "image_result.json"
	PublishResultFile = "publish_result.json"
	UsedThemesFile    = "used_themes.json"
)

const (
	StageFetchThemes     = "fetch-themes"
	StageGenerateContent = "generate-content"
	StageGenerateImage   = "generate-image"
	StagePublish         = "publish-post"
	StageRecordTheme     = "record-theme"
)

// Stages lists every stage in execution order.
var Stages = []string{StageFetchThemes, StageGenerateContent, StageGenerateImage, StagePublish, StageRecordTheme}

type ThemeHistory interface {
	FetchRecent(ctx context.Context, limit int) []string
	Append(ctx context.Context, theme string) bool
}

type Ledger interface {
	RecordPublication(ctx context.Context, p models.Publication) error
	RecentPublications(ctx context.Context, limit int) ([]models.Publication, error)
	Close() error
}

// Processor runs stages against the files in the configured work directory.
// Collaborators not supplied as options are built from the config on first use.
type Processor struct {
	cfg *config.Config

	history      ThemeHistory
	llm          llm.Client
	searcher     content.Searcher
	persona      *persona.Persona
	images       imagegen.Generator
	imageService *services.ImageService
	archive      drive.Uploader
	linkedin     linkedin.API
	ledger       Ledger
	ledgerOpened bool

	now func() time.Time
}

type Option func(*Processor)

func WithThemeHistory(h ThemeHistory) Option { return func(p *Processor) { p.history = h } }
func WithLLM(c llm.Client) Option { return func(p *Processor) { p.llm = c } }
func WithSearcher(s content.Searcher) Option { return func(p *Processor) { p.searcher = s } }
func WithPersona(pp *persona.Persona) Option { return func(p *Processor) { p.persona = pp } }
func WithImageGenerator(g imagegen.Generator) Option { return func(p *Processor) { p.images = g } }
func WithDriveUploader(u drive.Uploader) Option { return func(p *Processor) { p.archive = u } }
func WithLinkedInAPI(api linkedin.API) Option { return func(p *Processor) { p.linkedin = api } }
func WithLedger(l Ledger) Option { return func(p *Processor) { p.ledger = l } }
func WithClock(now func() time.Time) Option { return func(p *Processor) { p.now = now } }

func NewProcessor(cfg *config.Config, opts ...Option) *Processor {
	p := &Processor{
		cfg:          cfg,
		imageService: services.NewImageServiceWithConfig(cfg.ImageConfig.MaxWidth, cfg.ImageConfig.MaxHeight),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the named stage.
func (p *Processor) Run(ctx context.Context, stage string) error {
	logger.Get().SetStage(stage)
	switch stage {
	case StageFetchThemes:
		return p.FetchThemes(ctx)
	case StageGenerateContent:
		return p.GenerateContent(ctx)
	case StageGenerateImage:
		return p.GenerateImage(ctx)
	case StagePublish:
		return p.Publish(ctx)
	case StageRecordTheme:
		return p.RecordTheme(ctx)
	}
	return fmt.Errorf("unknown stage %q", stage)
}

// RunAll executes every stage in order under a fresh run id and stops at
// the first error.
func (p *Processor) RunAll(ctx context.Context) error {
	logger.Get().NewRun()
	for _, stage := range Stages {
		log.Printf("Running stage %s", stage)
		if err := p.Run(ctx, stage); err != nil {
			return fmt.Errorf("stage %s: %w", stage, err)
		}
	}
	return nil
}

func (p *Processor) Close() error {
	if p.ledgerOpened && p.ledger != nil {
		return p.ledger.Close()
	}
	return nil
}

func (p *Processor) path(name string) string {
	return p.cfg.Path(name)
}

func (p *Processor) themeHistory() ThemeHistory {
	if p.history == nil {
		p.history = themes.NewHistory(p.cfg)
	}
	return p.history
}

func (p *Processor) contentGenerator() (*content.Generator, error) {
	if p.persona == nil {
		pp, err := persona.Load(p.cfg.PersonaPath)
		if err != nil {
			return nil, err
		}
		p.persona = pp
	}
	if p.llm == nil {
		client, err := llm.New(p.cfg.LLMConfig, p.path(filepath.Join(".cache", "llm")))
		if err != nil {
			return nil, err
		}
		p.llm = client
	}
	if p.searcher == nil {
		p.searcher = services.NewBraveSearchService(p.cfg.SearchConfig)
	}
	return content.NewGenerator(p.llm, p.searcher, p.persona, content.Options{
		ContentTemperature:     p.cfg.LLMConfig.PostTemperature(),
		ImagePromptTemperature: p.cfg.LLMConfig.ImageTemperature(),
		MaxSources:             p.cfg.SearchConfig.MaxResults,
		StripMarkdown:          p.cfg.StripsMarkdown(),
		Locale:                 p.cfg.Locale,
	}), nil
}

func (p *Processor) imageGenerator() (imagegen.Generator, error) {
	if p.images == nil {
		g, err := imagegen.New(p.cfg.ImageConfig)
		if err != nil {
			return nil, err
		}
		p.images = g
	}
	return p.images, nil
}

// driveUploader returns nil when archiving is not configured or unavailable.
func (p *Processor) driveUploader(ctx context.Context) drive.Uploader {
	if p.archive != nil || p.cfg.ImageConfig.DriveFolderID == "" {
		return p.archive
	}
	svc, err := services.NewGoogleDriveService(ctx, p.cfg)
	if err != nil {
		log.Printf("Warning: Drive archive disabled: %v", err)
		return nil
	}
	p.archive = svc
	return p.archive
}

func (p *Processor) linkedInAPI(ctx context.Context) linkedin.API {
	if p.linkedin == nil {
		p.linkedin = services.NewLinkedInService(ctx, p.cfg.LinkedInConfig)
	}
	return p.linkedin
}

// publicationLedger returns nil when the ledger is disabled or cannot be opened.
func (p *Processor) publicationLedger() Ledger {
	if p.ledger != nil || p.cfg.LedgerConfig.Disabled {
		return p.ledger
	}
	svc, err := services.NewLedgerService(p.cfg.LedgerConfig)
	if err != nil {
		log.Printf("Warning: publication ledger unavailable: %v", err)
		p.cfg.LedgerConfig.Disabled = true
		return nil
	}
	p.ledger = svc
	p.ledgerOpened = true
	return p.ledger
}
