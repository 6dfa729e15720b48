package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"midas/internal/di"
	"midas/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	mode := flag.String("mode", "ingest", "run mode: ingest or verify")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s symbols=%d intervals=%d", cfg.Environment, len(cfg.Symbols), len(cfg.Intervals))

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	switch *mode {
	case "ingest":
		report, err := app.Run()
		if err != nil {
			log.Printf("app error: %v", err)
			os.Exit(1)
		}
		if !report.Ok() {
			log.Printf("%d pipeline(s) failed", report.Failed)
			os.Exit(1)
		}
	case "verify":
		report, err := app.RunVerify()
		if err != nil {
			log.Printf("verify error: %v", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatalf("encode report: %v", err)
		}
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}
