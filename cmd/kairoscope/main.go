// Command kairoscope builds oblique strategy decks from a local knowledge base.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/kairoscope/internal/adapters/driven/ai"
	"github.com/custodia-labs/kairoscope/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kairoscope/internal/adapters/driven/metrics"
	"github.com/custodia-labs/kairoscope/internal/adapters/driven/sources/filesystem"
	"github.com/custodia-labs/kairoscope/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/kairoscope/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/kairoscope/internal/adapters/driven/watch"
	"github.com/custodia-labs/kairoscope/internal/adapters/driving/cli"
	"github.com/custodia-labs/kairoscope/internal/core/services"
	"github.com/custodia-labs/kairoscope/internal/logger"
	"github.com/custodia-labs/kairoscope/internal/postprocessors"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer logger.Sync()

	// .env in the working directory may set KAIROSCOPE_HOME itself.
	if _, err := file.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading .env: %v\n", err)
		return 1
	}

	home, err := file.DefaultConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: resolving config directory: %v\n", err)
		return 1
	}
	if _, err := file.LoadDotEnv(filepath.Join(home, ".env")); err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading %s: %v\n", filepath.Join(home, ".env"), err)
		return 1
	}

	configStore, err := file.NewConfigStore(home)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening config: %v\n", err)
		return 1
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: reading settings: %v\n", err)
		return 1
	}
	if settings.KnowledgeBase.IndexPath == "" {
		settings.KnowledgeBase.IndexPath = filepath.Join(home, "index")
	}

	// Connectivity is checked on first use so offline commands stay fast.
	opts := ai.Options{SkipPing: true}
	if settings.Embedding.CacheEnabled {
		opts.CacheDir = filepath.Join(home, "cache", "embeddings")
	}
	aiServices := ai.Initialise(ctx, *settings, opts)
	defer aiServices.Close()

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := postprocessors.BuildPipeline(registry, settingsService.GetPipelineConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: building chunking pipeline: %v\n", err)
		return 1
	}

	store, err := sqlite.NewStore(filepath.Join(home, "data"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening deck store: %v\n", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing deck store: %v", err)
		}
	}()

	prompts, err := file.NewPromptStore(filepath.Join(home, "prompts"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening prompts: %v\n", err)
		return 1
	}

	prom := metrics.NewPrometheus()
	kbPath := settings.KnowledgeBase.Path

	retrieval := services.NewRetrievalService(services.BuilderConfig{
		Loader:            filesystem.New(kbPath),
		Pipeline:          pipeline,
		Embedder:          aiServices.EmbeddingService,
		Store:             sqlite.NewIndexStore(),
		NewIndex:          flat.NewVectorIndex,
		Metrics:           prom,
		IndexPath:         settings.KnowledgeBase.IndexPath,
		Concurrency:       settings.Embedding.Concurrency,
		RequestsPerSecond: settings.Embedding.RequestsPerSecond,
	}, services.DefaultStrategies()...)

	decks := services.NewDeckService(
		retrieval,
		aiServices.LLMService,
		store.DeckStore(),
		prompts,
		prom,
		services.DeckConfigFrom(*settings),
	)

	watcher := watch.New(kbPath)
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warn("closing knowledge base watcher: %v", err)
		}
	}()

	cli.SetServices(cli.Services{
		Retriever: retrieval,
		Decks:     decks,
		Settings:  settingsService,
		Metrics:   prom.Handler(),
		OpenIndex: retrieval.Load,
		LoadIndex: retrieval.LoadOrBuild,
		WatchSources: func(ctx context.Context) error {
			return retrieval.WatchSources(ctx, watcher)
		},
		Defaults: settings.Retrieval,
	})

	// Cobra has already printed the error.
	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}
