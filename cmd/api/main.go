package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"devlog-shortener/pkg/app"
	"devlog-shortener/pkg/config"
	"devlog-shortener/pkg/http"
	"devlog-shortener/pkg/logging"
	"devlog-shortener/pkg/middleware"

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

	// Auth middleware
	authConfig := middleware.AuthConfig{
		TokenHash: cfg.Auth.TokenHash,
		IssuerURL: cfg.Auth.OIDCIssuer,
		Audience:  cfg.Auth.OIDCAudience,
	}
	var auth *middleware.AuthMiddleware
	if authConfig.Configured() {
		auth, err = middleware.NewAuthMiddleware(ctx, authConfig, logger)
		if err != nil {
			log.Fatal("Failed to create auth middleware: ", err)
		}
	} else {
		logger.Logger.Warn("post ingestion is not protected: no token hash or OIDC issuer configured")
	}

	handler := http.NewHandler(application.LinkService, application.PostService, application.Recorder, logger)

	r := chi.NewRouter()
	http.SetupRoutes(r, handler, auth)

	if err := application.Serve(ctx, cfg.Server.Addr, r); err != nil {
		log.Fatal(err)
	}
}
