// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"stock-metadata-generator/internal/config"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/adapter"
	"stock-metadata-generator/internal/domain/ports/repository"
	aiAdapters "stock-metadata-generator/internal/infra/adapters/ai"
	"stock-metadata-generator/internal/infra/imaging"
	"stock-metadata-generator/internal/infra/keystore"
	"stock-metadata-generator/internal/infra/logging"
	"stock-metadata-generator/internal/infra/metrics"
	red "stock-metadata-generator/internal/infra/redis"
	"stock-metadata-generator/internal/infra/security"
	"stock-metadata-generator/internal/infra/web"
	"stock-metadata-generator/internal/infra/worker"
	"stock-metadata-generator/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

const geminiMaxOutputTokens = 2048

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop provider, optional auth)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Key store ----
	var keys repository.KeyStore
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		keys = red.NewKeyStore(redisClient, cfg.Redis.KeyPrefix)
		logger.Info().Str("prefix", cfg.Redis.KeyPrefix).Msg("credential store: redis")
	} else {
		keys = keystore.NewMemory()
		logger.Warn().Msg("credential store: in-memory, keys are lost on restart")
	}
	if cfg.Security.EncryptionKey != "" {
		c, err := security.NewCipher(cfg.Security.EncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("encryption")
		}
		keys = security.NewSealedKeyStore(keys, c)
	} else if cfg.Redis.URL != "" {
		logger.Warn().Msg("security.encryption_key not set; credentials are stored as plaintext")
	}

	// ---- Credentials ----
	providers := []model.Provider{model.ProviderGemini, model.ProviderMistral, model.ProviderGroq}
	if cfg.Runtime.Dev {
		providers = append(providers, model.ProviderNoop)
	}
	creds := usecase.NewCredentialRegistry(keys, logger, providers...)
	if err := creds.LoadAll(ctx); err != nil {
		logger.Fatal().Err(err).Msg("load credentials")
	}
	seeds := map[model.Provider][]string{
		model.ProviderGemini:  cfg.AI.Gemini.Keys,
		model.ProviderMistral: cfg.AI.Mistral.Keys,
		model.ProviderGroq:    cfg.AI.Groq.Keys,
	}
	if cfg.Runtime.Dev {
		seeds[model.ProviderNoop] = []string{"noop"}
	}
	for p, ks := range seeds {
		if err := creds.Seed(ctx, p, ks); err != nil {
			logger.Fatal().Err(err).Str("provider", string(p)).Msg("seed credentials")
		}
	}

	// ---- AI adapters ----
	prep := imaging.NewPreparer(cfg.AI.AnalysisMaxEdge)
	chain := func(p adapter.MetadataProvider, pc config.ProviderConfig) adapter.MetadataProvider {
		policy := aiAdapters.RetryPolicy{
			MaxAttempts: cfg.AI.MaxAttempts,
			BaseDelay:   pc.BaseDelay,
			MaxJitter:   aiAdapters.DefaultMaxJitter,
		}
		return aiAdapters.Chain(p, policy, cfg.AI.ConcurrentLimit, logger)
	}
	gemini := aiAdapters.NewGeminiAdapter(cfg.AI.Gemini.BaseURL, cfg.AI.Gemini.Model,
		geminiMaxOutputTokens, cfg.AI.Gemini.Timeout, prep)
	if pool, err := creds.Pool(model.ProviderGemini); err == nil {
		// drop SDK clients of removed keys
		updates, stop := pool.Watch()
		defer stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case keys := <-updates:
					gemini.Retain(keys)
				}
			}
		}()
	}
	byProvider := map[model.Provider]adapter.MetadataProvider{
		model.ProviderGemini: chain(gemini, cfg.AI.Gemini),
		model.ProviderMistral: chain(aiAdapters.NewMistralAdapter(cfg.AI.Mistral.BaseURL, cfg.AI.Mistral.Model,
			cfg.AI.Mistral.Timeout, prep), cfg.AI.Mistral),
		model.ProviderGroq: chain(aiAdapters.NewGroqAdapter(cfg.AI.Groq.BaseURL, cfg.AI.Groq.Model,
			cfg.AI.Groq.Timeout, prep), cfg.AI.Groq),
	}
	if cfg.Runtime.Dev {
		byProvider[model.ProviderNoop] = chain(aiAdapters.NewNoopAIAdapter(300*time.Millisecond),
			config.ProviderConfig{BaseDelay: 100 * time.Millisecond})
	}
	defaultProvider, err := model.ParseProvider(cfg.AI.DefaultProvider)
	if err != nil {
		logger.Fatal().Err(err).Msg("ai.default_provider")
	}
	if _, ok := byProvider[defaultProvider]; !ok {
		logger.Fatal().Str("provider", string(defaultProvider)).Msg("default provider is only available in dev mode")
	}
	multi := aiAdapters.NewMultiProvider(defaultProvider, byProvider)
	logger.Info().Str("default", string(defaultProvider)).Interface("providers", multi.Providers()).Msg("AI adapters ready")

	// ---- Background runs ----
	jobs := worker.NewPool(cfg.Batch.RunWorkers, logger)
	jobs.Start(ctx)
	defer jobs.Stop()

	// ---- Use cases ----
	catalog, err := model.DefaultCatalog()
	if err != nil {
		logger.Fatal().Err(err).Msg("platform catalog")
	}
	items := usecase.NewItemStore()
	intakeUC := usecase.NewIntakeUseCase(items, imaging.NewThumbnailer(cfg.Intake.ThumbnailEdge), cfg.Intake.MaxFiles, logger)
	batchUC := usecase.NewBatchUseCase(items, multi, creds, catalog, jobs, cfg.Batch.Concurrency, logger)
	editUC := usecase.NewBulkEditUseCase(items, catalog, model.DefaultHistoryLimit, logger)
	exportUC := usecase.NewExportUseCase(items, catalog, logger)

	// ---- HTTP ----
	var auth *web.AuthManager
	if cfg.Auth.APIKey != "" && cfg.Auth.JWTSecret != "" {
		auth = web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.APIKey, cfg.Auth.SessionTTL)
	} else {
		logger.Warn().Msg("auth disabled")
	}
	srv := web.NewServer(web.Deps{
		Items:   items,
		Intake:  intakeUC,
		Batch:   batchUC,
		Edits:   editUC,
		Export:  exportUC,
		Creds:   creds,
		Auth:    auth,
		MaxBody: cfg.HTTP.MaxUploadMB << 20,
		Dev:     cfg.Runtime.Dev,
	}, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdown(server, cfg.HTTP.ShutdownTimeout, logger)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
