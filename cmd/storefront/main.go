package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	appkg "github.com/shopfront/shopfront/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := appkg.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Logs go to a file so the terminal stays owned by the interface.
	lg, err := appkg.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	if err := appkg.Run(ctx, lg, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
