package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"devlog-shortener/pkg/app"
	"devlog-shortener/pkg/config"
	httphandler "devlog-shortener/pkg/http"
	"devlog-shortener/pkg/logging"

	"github.com/go-chi/chi/v5"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.NewLogger(logging.LogLevel(cfg.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer application.Close()

	handler := httphandler.NewHandler(application.LinkService, nil, application.Recorder, logger)

	r := chi.NewRouter()
	httphandler.SetupRedirectRoutes(r, handler)

	if err := application.Serve(ctx, cfg.Server.RedirectAddr, r); err != nil {
		log.Fatal(err)
	}
}
