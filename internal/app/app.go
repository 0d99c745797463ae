package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/debug"
	"linkedin-autopilot-go/internal/logger"
	"linkedin-autopilot-go/internal/pipeline"
	"linkedin-autopilot-go/internal/scheduler"
)

// App wires configuration to the pipeline processor and owns its resources.
type App struct {
	config    *config.Config
	processor *pipeline.Processor
}

func New(cfg *config.Config, opts ...pipeline.Option) *App {
	return &App{
		config:    cfg,
		processor: pipeline.NewProcessor(cfg, opts...),
	}
}

func (a *App) Close() {
	if err := a.processor.Close(); err != nil {
		log.Printf("Warning: failed to close processor: %v", err)
	}
}

var stageTitles = map[string]string{
	pipeline.StageFetchThemes:     "THEME HISTORY",
	pipeline.StageGenerateContent: "CONTENT GENERATION",
	pipeline.StageGenerateImage:   "IMAGE GENERATION",
	pipeline.StagePublish:         "LINKEDIN PUBLISH",
	pipeline.StageRecordTheme:     "THEME RECORDER",
}

// RunStage runs one stage between a start and an outcome banner.
func (a *App) RunStage(ctx context.Context, stage string) error {
	title, ok := stageTitles[stage]
	if !ok {
		return fmt.Errorf("unknown stage %q (expected one of %s)", stage, strings.Join(pipeline.Stages, ", "))
	}

	fmt.Println(Banner(title+" STARTED", "work dir: "+a.config.WorkDir))

	op := logger.Get().StartOperation("stage")
	op.WithContext("stage", stage)

	if err := a.processor.Run(ctx, stage); err != nil {
		op.Fail(title+" failed", err)
		fmt.Println(Banner(title+" FAILED", err.Error()))
		return err
	}

	op.Complete(title + " complete")
	fmt.Println(Banner(title + " COMPLETE"))
	return nil
}

// RunAll runs every stage in order under a fresh run id and stops at the
// first failure.
func (a *App) RunAll(ctx context.Context) error {
	logger.Get().NewRun()
	for _, stage := range pipeline.Stages {
		if err := a.RunStage(ctx, stage); err != nil {
			return fmt.Errorf("stage %s: %w", stage, err)
		}
	}
	return nil
}

// Schedule runs the whole pipeline on the configured cron expression until
// ctx is cancelled. With runNow the pipeline also runs once before the first
// tick; a failure there is logged and scheduling continues.
func (a *App) Schedule(ctx context.Context, runNow bool) error {
	sc := a.config.ScheduleConfig
	if sc.Cron == "" {
		return fmt.Errorf("%w: schedule_config.cron is required for scheduled runs", config.ErrMissingConfig)
	}

	s, err := scheduler.New(sc.Timezone)
	if err != nil {
		return err
	}
	if err := s.AddJob("pipeline", sc.Cron, a.RunAll); err != nil {
		return err
	}

	if runNow {
		if err := s.RunNow("pipeline", a.RunAll); err != nil {
			log.Printf("Initial run failed: %v", err)
		}
	}

	s.Start()
	for _, job := range s.ListJobs() {
		log.Printf("Next %s run: %s", job.Name, job.NextRun.Format("2006-01-02 15:04 MST"))
	}

	<-ctx.Done()
	<-s.Stop().Done()
	return nil
}

var (
	bannerTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	bannerBody = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	bannerBox = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 2)
)

// Banner renders a boxed stage header for console output.
func Banner(title string, lines ...string) string {
	parts := []string{bannerTitle.Render(title)}
	for _, line := range lines {
		if line != "" {
			parts = append(parts, bannerBody.Render(line))
		}
	}
	return bannerBox.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// ExitCode maps a stage result to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Setup loads configuration and initializes the global logger for service.
func Setup(service string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	l := logger.Init(service, cfg.LogsDir)
	l.SetSampleRate(cfg.LogSampleRate)
	debug.Printf("Logging to %s (run %s)", l.GetLogFilePath(), l.RunID())
	return cfg, nil
}

// RunStageMain is the whole body of a single-stage binary. It never returns.
func RunStageMain(stage string) {
	debug.EnableFromEnv()
	os.Exit(runStage(stage))
}

func runStage(stage string) int {
	cfg, err := Setup(stage)
	if err != nil {
		log.Printf("Configuration error: %v", err)
		return 1
	}
	defer logger.Close()

	ctx, cancel := SignalContext()
	defer cancel()

	application := New(cfg)
	defer application.Close()

	err = application.RunStage(ctx, stage)
	if errors.Is(err, pipeline.ErrMissingInput) {
		log.Printf("Error: %v", err)
	} else if err != nil {
		log.Printf("Stage %s failed: %v", stage, err)
	}
	return ExitCode(err)
}
