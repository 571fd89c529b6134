package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"TFoldSV/internal/di"
	"TFoldSV/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file path")
	once := flag.Bool("once", false, "generate one report from the configured source, print it as JSON and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := app.RunOnce(ctx, os.Stdout); err != nil {
			log.Printf("report failed: %v", err)
			os.Exit(1)
		}
		return
	}

	log.Printf("env=%s source=%s interval=%s fold_size=%s",
		cfg.Environment, cfg.Source.Type, cfg.Pipeline.Interval, cfg.Pipeline.FoldSize)

	if err := app.Run(ctx); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
