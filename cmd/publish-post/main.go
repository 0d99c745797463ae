package main

import (
	"linkedin-autopilot-go/internal/app"
	"linkedin-autopilot-go/internal/pipeline"
)

func main() {
	app.RunStageMain(pipeline.StagePublish)
}
