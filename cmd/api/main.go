package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"storyreel-server/internal/adapter/repo"
	"storyreel-server/internal/http/handlers"
	httpapi "storyreel-server/internal/http/httpapi"
	"storyreel-server/internal/infra"
	"storyreel-server/internal/infra/credentials"
	"storyreel-server/internal/infra/geoip"
	"storyreel-server/internal/middleware"
	"storyreel-server/internal/providers/dashscope"
	"storyreel-server/internal/providers/image"
	"storyreel-server/internal/providers/video"
	"storyreel-server/internal/session"
	"storyreel-server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)

	// API key: environment wins, stored integration token is the fallback.
	apiKey := cfg.DashScopeAPIKey
	if apiKey == "" {
		keyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		stored, err := credentials.NewStore(runner).DashScopeAPIKey(keyCtx)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load stored dashscope key")
		}
		apiKey = stored
	}

	dsClient := dashscope.NewClient(dashscope.Options{
		APIKey:  apiKey,
		BaseURL: cfg.DashScopeBaseURL,
		Logger:  &logger,
	})

	images := image.NewQwenGenerator(dsClient, image.NewSyntheticGenerator())
	var videos session.VideoProvider
	if dsClient.HasCredentials() {
		videos = video.NewWanClient(dsClient)
	} else {
		logger.Warn().Msg("dashscope credentials missing, using synthetic video provider")
		videos = video.NewSyntheticProvider()
	}

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable")
	} else if resolver != nil {
		lookup = resolver.CountryCode
	}

	exports, err := storage.NewFileStore(cfg.ExportPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare export storage")
	}

	accounts := repo.NewAccountRepository(runner)
	sessions := session.NewManager(session.Options{
		Profiles:      accounts,
		SQL:           runner,
		Images:        images,
		Videos:        videos,
		Logger:        logger,
		ImageModel:    cfg.ImageModel,
		VideoModel:    cfg.VideoModel,
		PollInterval:  cfg.PollInterval,
		JobTimeout:    cfg.JobTimeout,
		StopOnNoFunds: cfg.StopOnNoFunds,
	})

	app := &handlers.App{
		SQL:       runner,
		Accounts:  accounts,
		Sessions:  sessions,
		Exports:   exports,
		JWTSecret: cfg.JWTSecret,
		Logger:    logger,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		DefaultLocale:   "en",
		CountryLookup:   lookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	sessions.CloseAll()
	logger.Info().Msg("server stopped")
}
