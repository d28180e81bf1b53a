package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meetings-service/internal/app"
	"meetings-service/internal/config"
	"meetings-service/internal/logging"
	"meetings-service/internal/server"
	"meetings-service/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer db.Close()

	appInstance := app.New(db, logger)
	appInstance.SearchHorizon = cfg.SearchHorizon
	appInstance.JWTSecret = cfg.JWT.Secret
	appInstance.JWTExpiration = cfg.JWT.Expiration
	appInstance.Google = app.NewGoogleCalendarConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	if appInstance.Google == nil {
		logger.Info("google calendar import disabled")
	}

	srv := server.New(cfg.Server, cfg.Addr(), appInstance.Router())
	if err := server.Run(ctx, srv, cfg.Server, logger); err != nil {
		logger.Error("http server stopped", zap.Error(err))
	}
}
