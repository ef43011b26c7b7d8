package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rag-service/internal/config"
	"rag-service/internal/provider"
	"rag-service/internal/retriever"
	"rag-service/internal/server"
	"rag-service/internal/store"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if key := os.Getenv("PROVIDER_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	embedder, err := provider.NewEmbedder(&cfg.Provider)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	generator, err := provider.NewGenerator(&cfg.Provider)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing generator")
	}

	ctx := context.Background()
	indexStore, err := newIndexStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing index store")
	}

	ret, err := retriever.New(cfg, embedder, generator, indexStore)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing retriever")
	}
	if err := ret.Restore(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error restoring persisted indexes")
	}

	app := fiber.New(fiber.Config{AppName: "rag-service"})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(fiberlogger.New())
	server.NewHandler(ret).Register(app)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("provider", cfg.Provider.Type).
			Str("embedding_model", cfg.Provider.EmbeddingModel).
			Str("store", cfg.Store.Type).
			Msg("Starting RAG service")
		if err := app.Listen(addr); err != nil {
			log.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
	if indexStore != nil {
		if err := indexStore.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing index store")
		}
	}
}

func newIndexStore(ctx context.Context, cfg *config.Config) (store.IndexStore, error) {
	switch cfg.Store.Type {
	case "chromem":
		s, err := store.NewChromemStore(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.Store.DSN, cfg.Store.Debug)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		// "memory": indexes live only in process memory.
		return nil, nil
	}
}
