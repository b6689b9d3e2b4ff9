// Command cdm merges user stats into the reporting marts.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dwh/internal/config"
	"dwh/internal/service"
)

func main() {
	cfg, err := config.Parse("cdm", flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("cdm config: %v", err)
	}
	if err := run(cfg); err != nil {
		log.Fatalf("cdm failed: %v", err)
	}
}

func run(cfg config.Stage) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := service.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	h, err := svc.Handler()
	if err != nil {
		return err
	}
	return svc.Run(ctx, h)
}
