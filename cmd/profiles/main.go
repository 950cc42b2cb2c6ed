package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"community-load-profiles/internal/engine"
	"community-load-profiles/internal/export"
	"community-load-profiles/internal/logging"
	"community-load-profiles/internal/model"
)

func main() {
	var (
		configPath = flag.String("config", "scenario.yaml", "path to the scenario configuration file")
		seed       = flag.Int64("seed", 0, "override the scenario seed (0 keeps the configured value)")
		runs       = flag.Int("runs", 0, "override the number of runs (0 keeps the configured value)")
		outDir     = flag.String("out", "", "override the output directory")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	log := logging.New(*debug)
	defer log.Sync()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		log.Fatalw("load configuration", "path", *configPath, "err", err)
	}
	if *seed != 0 {
		cfg.Seed = seed
	}
	if *runs > 0 {
		cfg.Runs = *runs
	}
	if *outDir != "" {
		cfg.Outputs.Dir = *outDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(cfg, log)
	result, err := eng.RunScenario(ctx)
	if err != nil {
		log.Fatalw("scenario failed", "err", err)
	}

	dir := cfg.Outputs.Dir
	if dir == "" {
		dir = "outputs"
	}
	if err := export.WriteAll(dir, cfg, result); err != nil {
		log.Fatalw("write outputs", "dir", dir, "err", err)
	}

	fmt.Printf("✅ Scenario complete: %d runs, %d buildings each, outputs in %s\n",
		len(result.Runs), len(result.Runs[0].Cohort), dir)
}
