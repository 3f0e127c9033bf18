package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/scholia-ai/scholia/internal/app"
	"github.com/scholia-ai/scholia/internal/config"
	"github.com/scholia-ai/scholia/internal/server"
	"github.com/scholia-ai/scholia/internal/util"
	"github.com/scholia-ai/scholia/pkg/logger"
	"github.com/scholia-ai/scholia/pkg/logger/console"
)

func main() {
	configFile := flag.String("config", "", "path to config file")
	flag.Parse()

	logger.Init(console.NewConsoleBackend(console.ConsoleBackendParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Prefix: "scholia",
	}))

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Fatal("Failed to load config", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize application", "err", err)
	}
	defer a.Close(context.Background())

	srv := server.NewServer(server.NewServerParams{
		Pipeline:  a.Pipeline,
		Engine:    a.Engine,
		Generator: a.Generator,
		Source:    a.Source,
		Config:    cfg,
	})
	if err := srv.Run(ctx); err != nil {
		logger.Fatal("Server failed", "err", err)
	}
}
