package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"linkchat/internal/ai"
	"linkchat/internal/catalog"
	"linkchat/internal/chat"
	"linkchat/internal/config"
	"linkchat/internal/logging"
	"linkchat/internal/model"
	"linkchat/internal/server"
	"linkchat/internal/session"
	"linkchat/internal/stream"
	"linkchat/internal/token"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logging.New(nil, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	client := ai.NewClient(cfg.APIKey, cfg.BaseURL, log)

	defaults := model.DefaultGenerationConfig()
	defaults.Model = cfg.DefaultModel
	defaults.Temperature = cfg.DefaultTemperature
	defaults.MaxTokens = cfg.DefaultMaxTokens
	defaults.MaxHistoryTurns = cfg.DefaultHistoryTurns
	defaults.StreamingUpdateRate = cfg.StreamingUpdateRate

	tokenCfg := session.TokenConfig{
		Secret: cfg.SessionSecret,
		Expiry: cfg.SessionExpiry,
		Issuer: "linkchat",
	}

	router := server.NewRouter(server.Deps{
		Config:      cfg,
		Sessions:    session.NewManager(defaults),
		Chat:        chat.NewService(client, log),
		Coordinator: stream.NewCoordinator(client, log),
		Issuer:      token.NewIssuer(log),
		Catalog:     catalog.New(client, cfg.CatalogTTL, log),
		TokenConfig: tokenCfg,
		Log:         log,
	})

	log.Info().Int("port", cfg.Port).Bool("noAuth", cfg.NoAuth).Msg("listening")
	if err := server.Run(cfg, router); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
