package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/suitewaste/internal/server"
	"github.com/dmitrijs2005/suitewaste/internal/server/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Printf("%v", err)
		os.Exit(2)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}
