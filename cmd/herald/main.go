package main

import (
	"context"
	"time"

	"signalfire/internal/generate"
	"signalfire/internal/handlers"
	"signalfire/internal/pipeline"
	"signalfire/internal/platforms"
	"signalfire/internal/store"
	"signalfire/pkg/config"
	"signalfire/pkg/database"
	"signalfire/pkg/llm"
	"signalfire/pkg/logging"
	"signalfire/pkg/monitoring"
	"signalfire/pkg/server"
	"signalfire/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("herald")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Herald (Viral Distribution Pipeline)")

	dbURL := config.RequireEnv("DATABASE_URL")

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = dbURL
	db := database.MustConnect(dbConfig, logger)
	defer db.Close()

	// LLM collaborator
	llmConfig := llm.LoadConfig()
	provider, err := llm.NewProvider(llmConfig)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize LLM provider")
	}

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("herald", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("herald", version.Version, version.GitCommit)

	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL": dbURL,
		"LLM_PROVIDER": llmConfig.Provider,
	}))

	st := store.NewPostgresStore(db, logger)

	// Platform adapters
	registry, err := platforms.NewRegistry(
		platforms.NewLinkedInAdapter(
			config.GetEnv("LINKEDIN_CLIENT_ID", ""),
			config.GetEnv("LINKEDIN_CLIENT_SECRET", ""),
		),
		platforms.NewFacebookAdapter(
			config.GetEnv("FACEBOOK_CLIENT_ID", ""),
			config.GetEnv("FACEBOOK_CLIENT_SECRET", ""),
		),
		platforms.NewInstagramAdapter(
			config.GetEnv("INSTAGRAM_CLIENT_ID", ""),
			config.GetEnv("INSTAGRAM_CLIENT_SECRET", ""),
		),
		platforms.NewPinterestAdapter(
			config.GetEnv("PINTEREST_CLIENT_ID", ""),
			config.GetEnv("PINTEREST_CLIENT_SECRET", ""),
		),
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build platform registry")
	}

	resolver := platforms.NewCredentialResolver(st, platforms.DefaultsFromEnv())
	generator := generate.NewGenerator(provider, logger)

	pipelineMetrics := metricsCollector.CreatePipelineMetrics()

	orchestrator := pipeline.NewOrchestrator(st, registry, resolver, generator, logger, pipeline.Options{
		MaxConcurrency:  config.GetEnvInt("PIPELINE_MAX_CONCURRENCY", pipeline.DefaultMaxConcurrency),
		PublishAttempts: config.GetEnvInt("PIPELINE_PUBLISH_ATTEMPTS", 3),
		RetryBackoff:    config.GetEnvDuration("PIPELINE_RETRY_BACKOFF", 2*time.Second),
		Metrics:         pipelineMetrics,
	})

	// Start the scheduled batch loop
	jobManager := pipeline.NewJobManager(st, orchestrator, logger,
		config.GetEnvDuration("PIPELINE_TICK_INTERVAL", pipeline.DefaultTickInterval))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobManager.Start(ctx)
	defer jobManager.Stop()

	logger.Info("JobManager started - scheduled pipeline batches active")

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "herald", healthChecker, metricsCollector)

	h := handlers.New(st, orchestrator, logger, pipelineMetrics)
	h.Register(router)

	serverConfig := server.DefaultConfig("herald", "8080")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}
