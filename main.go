package main

import (
	"flag"
	"log"
	"os"

	"linkedin-autopilot-go/internal/app"
	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/debug"
	"linkedin-autopilot-go/internal/logger"
)

func main() {
	createConfig := flag.Bool("create-config", false, "Create a default configuration file")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	stage := flag.String("stage", "", "Run a single stage (fetch-themes, generate-content, generate-image, publish-post, record-theme)")
	all := flag.Bool("all", false, "Run every stage in order")
	cronExpr := flag.String("cron", "", "Run the whole pipeline on this cron expression until interrupted (e.g. \"0 9 * * 1-5\")")
	runNow := flag.Bool("run-now", false, "With -cron, also run the pipeline once at startup")
	flag.Parse()

	debug.SetEnabled(*debugFlag)
	if !*debugFlag {
		debug.EnableFromEnv()
	}

	if *createConfig {
		if err := config.CreateDefaultConfig(); err != nil {
			log.Fatalf("Failed to create configuration: %v", err)
		}
		return
	}

	if *stage == "" && !*all && *cronExpr == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := app.Setup("linkedin-autopilot-go")
	if err != nil {
		log.Printf("Configuration error: %v", err)
		log.Println("")
		log.Println("To create a default configuration file, run:")
		log.Println("  ./linkedin-autopilot-go -create-config")
		os.Exit(1)
	}
	log.Printf("Configuration loaded successfully")

	ctx, cancel := app.SignalContext()
	application := app.New(cfg)

	switch {
	case *cronExpr != "":
		cfg.ScheduleConfig.Cron = *cronExpr
		err = application.Schedule(ctx, *runNow)
	case *all:
		err = application.RunAll(ctx)
	default:
		err = application.RunStage(ctx, *stage)
	}

	application.Close()
	cancel()
	logger.Close()

	if err != nil {
		log.Printf("Pipeline failed: %v", err)
	} else {
		log.Println("Application completed successfully")
	}
	os.Exit(app.ExitCode(err))
}
