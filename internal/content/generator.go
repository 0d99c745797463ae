package content

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"linkedin-autopilot-go/internal/llm"
	"linkedin-autopilot-go/internal/logger"
	"linkedin-autopilot-go/internal/models"
	"linkedin-autopilot-go/internal/persona"
	"linkedin-autopilot-go/internal/utils"
)

// Searcher is the web search backend used for research.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SearchSource, error)
}

type Options struct {
	ContentTemperature     float64
	ImagePromptTemperature float64
	MaxSources             int
	StripMarkdown          bool
	Locale                 string
}

type Generator struct {
	llm      llm.Client
	searcher Searcher
	persona  *persona.Persona
	opts     Options
	now      func() time.Time
}

func NewGenerator(client llm.Client, searcher Searcher, p *persona.Persona, opts Options) *Generator {
	return &Generator{
		llm:      client,
		searcher: searcher,
		persona:  p,
		opts:     opts,
		now:      time.Now,
	}
}

// Research runs every persona query and merges the hits by URL. Failing
// queries are logged and skipped, so the result may be empty.
func (g *Generator) Research(ctx context.Context) []models.SearchSource {
	op := logger.Get().StartOperation("content_research")
	op.WithContext("queries", len(g.persona.SearchQueries))

	seen := make(map[string]bool)
	var sources []models.SearchSource
	failed := 0

	for _, query := range g.persona.SearchQueries {
		results, err := g.searcher.Search(ctx, query)
		if err != nil {
			failed++
			log.Printf("Search for %q failed: %v", query, err)
			continue
		}
		for _, r := range results {
			key := strings.TrimSpace(r.URL)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			sources = append(sources, r)
		}
	}

	if g.opts.MaxSources > 0 && len(sources) > g.opts.MaxSources {
		sources = sources[:g.opts.MaxSources]
	}

	op.WithContext("failed_queries", failed)
	op.WithContext("sources", len(sources))
	if failed > 0 {
		op.Warn(&logger.WideEvent{Message: fmt.Sprintf("%d of %d searches failed", failed, len(g.persona.SearchQueries))})
	} else {
		op.Complete(fmt.Sprintf("Collected %d search results", len(sources)))
	}
	return sources
}

// GeneratePost asks the model for a post avoiding used themes. The bool
// reports whether the response parsed; a fallback draft is returned otherwise.
func (g *Generator) GeneratePost(ctx context.Context, sources []models.SearchSource, used []string) (Draft, bool, error) {
	system, user := BuildPostPrompt(g.persona, used, sources, g.now(), g.opts.Locale)

	op := logger.Get().StartOperation("generate_post")
	op.WithContext("used_themes", len(used))
	op.WithContext("sources", len(sources))

	raw, err := g.llm.Complete(ctx, llm.Prompt{
		Purpose:     "post",
		System:      system,
		User:        user,
		Temperature: g.opts.ContentTemperature,
	})
	if err != nil {
		op.Fail("Post generation failed", err)
		return Draft{}, false, fmt.Errorf("failed to generate post: %w", err)
	}

	draft, parsed := ParsePost(raw)
	// the fallback keeps the raw response verbatim for inspection
	if parsed && g.opts.StripMarkdown {
		draft.Title = PlainText(draft.Title)
		draft.Content = PlainText(draft.Content)
	}
	op.WithPost(draft.Title, len(draft.Content))

	if !parsed {
		op.Warn(&logger.WideEvent{Message: "Could not parse JSON from model response, using fallback structure"})
		return draft, false, nil
	}
	if utils.ContainsTheme(used, draft.Title) {
		op.Warn(&logger.WideEvent{
			Message: "Model reused a recent theme",
			Context: map[string]any{"title": draft.Title},
		})
		return draft, true, nil
	}

	op.Complete(fmt.Sprintf("Post generated: %s", draft.Title))
	return draft, true, nil
}

// GenerateImagePrompt asks the model for a single descriptive image prompt.
func (g *Generator) GenerateImagePrompt(ctx context.Context, postContent string) (string, error) {
	system, user := BuildImagePrompt(g.persona, postContent)

	op := logger.Get().StartOperation("generate_image_prompt")
	raw, err := g.llm.Complete(ctx, llm.Prompt{
		Purpose:     "image_prompt",
		System:      system,
		User:        user,
		Temperature: g.opts.ImagePromptTemperature,
	})
	if err != nil {
		op.Fail("Image prompt generation failed", err)
		return "", fmt.Errorf("failed to generate image prompt: %w", err)
	}

	prompt := CleanImagePrompt(raw)
	if prompt == "" {
		err := fmt.Errorf("model returned an empty image prompt")
		op.Fail("Empty image prompt", err)
		return "", err
	}

	op.WithContext("prompt_chars", len(prompt))
	op.Complete("Image prompt generated")
	return prompt, nil
}
