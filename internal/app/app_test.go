package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/logger"
	"linkedin-autopilot-go/internal/pipeline"
)

func init() {
	logger.Init("app-test", "").SetOutput(io.Discard)
}

type stubHistory struct{ themes []string }

func (s *stubHistory) FetchRecent(context.Context, int) []string { return s.themes }
func (s *stubHistory) Append(context.Context, string) bool         { return true }

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Fatal("nil error should exit 0")
	}
	if ExitCode(errors.New("x")) != 1 {
		t.Fatal("error should exit 1")
	}
}

func TestBannerContainsTitleAndLines(t *testing.T) {
	out := Banner("IMAGE GENERATION COMPLETE", "saved linkedin_image.png", "")
	if !strings.Contains(out, "IMAGE GENERATION COMPLETE") || !strings.Contains(out, "saved linkedin_image.png") {
		t.Fatalf("banner missing text:\n%s", out)
	}
	if strings.Count(out, "\n") < 3 {
		t.Fatalf("expected a boxed banner:\n%s", out)
	}
}

func TestRunStage(t *testing.T) {
	cfg := config.Default()
	cfg.WorkDir = t.TempDir()
	a := New(cfg, pipeline.WithThemeHistory(&stubHistory{themes: []string{"A"}}))
	defer a.Close()

	if err := a.RunStage(context.Background(), pipeline.StageFetchThemes); err != nil {
		t.Fatalf("fetch-themes: %v", err)
	}
	if err := a.RunStage(context.Background(), pipeline.StageGenerateImage); !errors.Is(err, pipeline.ErrMissingInput) {
		t.Fatalf("expected missing input, got %v", err)
	}
	if err := a.RunStage(context.Background(), "bogus"); err == nil {
		t.Fatal("expected unknown stage error")
	}
}

func TestScheduleRequiresCron(t *testing.T) {
	cfg := config.Default()
	a := New(cfg)
	if err := a.Schedule(context.Background(), false); !errors.Is(err, config.ErrMissingConfig) {
		t.Fatalf("expected ErrMissingConfig, got %v", err)
	}
}

func TestScheduleRunNowRunsPipelineBeforeWaiting(t *testing.T) {
	cfg := config.Default()
	cfg.WorkDir = t.TempDir()
	cfg.ScheduleConfig.Cron = "0 9 * * *"
	history := &stubHistory{themes: []string{"A"}}
	a := New(cfg, pipeline.WithThemeHistory(history))
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Schedule(ctx, true); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	// the immediate run gets as far as the content stage, which lacks keys
	if _, err := os.Stat(filepath.Join(cfg.WorkDir, pipeline.UsedThemesFile)); err != nil {
		t.Fatalf("expected the immediate run to write %s: %v", pipeline.UsedThemesFile, err)
	}
}
