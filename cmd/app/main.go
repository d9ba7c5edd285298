package main

import (
	"flag"
	"log"
	"os"

	"FXPull/internal/di"
	"FXPull/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Stage to run: fetch, news, indicators, dataset, all or serve.
	stage := flag.Arg(0)
	if stage == "" {
		stage = "all"
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(stage); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
