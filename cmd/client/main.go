package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/papervault/internal/client/cli"
	"github.com/dmitrijs2005/papervault/internal/client/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("error initializing app: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("app error: %v", err)
	}
}
