package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"charmforge/internal/adapter/repo"
	"charmforge/internal/commerce"
	"charmforge/internal/http/handlers"
	"charmforge/internal/http/httpapi"
	"charmforge/internal/infra"
	"charmforge/internal/infra/geoip"
	"charmforge/internal/middleware"
	"charmforge/internal/pipeline"
	"charmforge/internal/providers/synth"
	"charmforge/internal/providers/vision"
	"charmforge/internal/storage"
	"charmforge/internal/transform"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	// Optional metadata persistence.
	var charms repo.CharmRepository
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		charms = repo.NewCharmRepository(pool)
	}

	store, err := storage.NewFileStore(cfg.StorageBasePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize asset storage")
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip resolver unavailable")
	}
	var lookup middleware.CountryLookup
	if resolver != nil {
		lookup = resolver.CountryCode
	}

	transformer := transform.NewClient(transform.Options{BaseURL: cfg.TransformBaseURL})

	describer := vision.NewDescriber(vision.Options{
		APIKey:  cfg.VisionAPIKey,
		Model:   cfg.VisionModel,
		BaseURL: cfg.VisionBaseURL,
		Timeout: cfg.VisionTimeout,
		Logger:  &logger,
	})
	synthesizer := synth.NewClient(synth.Options{
		APIKey:         cfg.SynthAPIKey,
		BaseURL:        cfg.SynthBaseURL,
		AttemptTimeout: cfg.SynthTimeout,
		MaxRetries:     cfg.SynthMaxRetries,
		RetryDelay:     cfg.SynthRetryDelay,
		Logger:         &logger,
	})

	orchestrator := pipeline.NewOrchestrator(pipeline.Options{
		Preprocessor:   pipeline.NewPreprocessor(transformer, cfg.CharmSize, &logger),
		Describer:      describer,
		Synthesizer:    synthesizer,
		Renderer:       pipeline.NewDerivedRenderer(transformer, store, cfg.CharmSize, &logger),
		Store:          store,
		StorageBaseURL: cfg.StorageBaseURL,
		Logger:         &logger,
	})

	storefront := commerce.NewClient(commerce.Options{
		BaseURL: cfg.CommerceBaseURL,
		APIKey:  cfg.CommerceAPIKey,
	})

	app := handlers.NewApp(orchestrator, storefront, charms, logger)

	router := httpapi.NewRouter(httpapi.Options{
		App:            app,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		CountryLookup:  lookup,
		StaticDir:      cfg.StorageBasePath,
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
	logger.Info().Msg("server stopped")
}
