// leadrouter is the conversational lead qualification router: it receives CRM
// webhooks, scores and routes each conversation to a specialist agent, and
// replies through the CRM with human-like pacing.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nivelo-ai/leadrouter/pkg/agent"
	"github.com/nivelo-ai/leadrouter/pkg/api"
	"github.com/nivelo-ai/leadrouter/pkg/checkpoint"
	"github.com/nivelo-ai/leadrouter/pkg/cleanup"
	"github.com/nivelo-ai/leadrouter/pkg/config"
	"github.com/nivelo-ai/leadrouter/pkg/crm"
	"github.com/nivelo-ai/leadrouter/pkg/events"
	"github.com/nivelo-ai/leadrouter/pkg/graph"
	"github.com/nivelo-ai/leadrouter/pkg/intel"
	"github.com/nivelo-ai/leadrouter/pkg/llm"
	"github.com/nivelo-ai/leadrouter/pkg/models"
	"github.com/nivelo-ai/leadrouter/pkg/notify"
	"github.com/nivelo-ai/leadrouter/pkg/queue"
	"github.com/nivelo-ai/leadrouter/pkg/reconcile"
	"github.com/nivelo-ai/leadrouter/pkg/responder"
	"github.com/nivelo-ai/leadrouter/pkg/router"
	"github.com/nivelo-ai/leadrouter/pkg/version"
)

const httpShutdownTimeout = 10 * time.Second

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	slog.Info("Starting leadrouter", "version", version.Full(), "config_dir", *configDir)

	ctx := context.Background()

	// 1. Configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	// 2. Checkpoint store
	store, err := newStore(ctx, cfg.Checkpoint)
	if err != nil {
		slog.Error("Failed to initialize checkpoint store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("Error closing checkpoint store", "error", err)
		}
	}()

	// 3. CRM client
	crmClient := crm.NewClient(cfg.CRM, os.Getenv(cfg.CRM.APIKeyEnv))

	// 4. Reply generator
	generator, err := llm.NewClient(cfg.LLM, os.Getenv(cfg.LLM.APIKeyEnv))
	if err != nil {
		slog.Error("Failed to initialize generator", "error", err)
		os.Exit(1)
	}

	// 5. Event bus, external mirrors, notifier
	bus := events.NewBus()
	bus.SubscribeLogger(slog.Default())
	if cfg.Checkpoint.Backend == config.CheckpointBackendRedis {
		events.NewRedisPublisher(bus, redis.NewClient(&redis.Options{
			Addr:     cfg.Checkpoint.RedisAddr,
			Password: os.Getenv(cfg.Checkpoint.RedisPasswordEnv),
			DB:       cfg.Checkpoint.RedisDB,
		}))
		slog.Info("Redis event mirror enabled", "addr", cfg.Checkpoint.RedisAddr)
	}
	notifier := notify.New(cfg.Slack)
	notifier.Attach(bus)

	// 6. Graph runtime
	deps, err := buildDeps(cfg, crmClient, generator, bus)
	if err != nil {
		slog.Error("Failed to build router", "error", err)
		os.Exit(1)
	}
	engine := graph.New(store, bus)
	router.Build(engine, deps)

	// 7. Worker pool (before HTTP intake)
	pool := queue.NewWorkerPool(cfg.Queue, engine)
	pool.Start(ctx)

	// 8. Retention sweep
	sweeper := cleanup.NewService(cfg.Retention, store)
	sweeper.Start(ctx)

	// 9. HTTP server
	server := api.NewServer(cfg.Server, pool, store, version.GitCommit)
	errCh := server.Start()

	slog.Info("leadrouter started", "workers", cfg.Queue.WorkerCount)

	// 10. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 11. Staged shutdown: stop intake, drain turns, stop background loops.
	shutdownCtx, cancel := context.WithTimeout(ctx, httpShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	pool.Stop()
	sweeper.Stop()

	slog.Info("Shutdown complete")
}

// newStore builds the configured checkpoint backend.
func newStore(ctx context.Context, cfg *config.CheckpointConfig) (checkpoint.Store, error) {
	switch cfg.Backend {
	case config.CheckpointBackendRedis:
		return checkpoint.NewRedisStore(ctx,
			cfg.RedisAddr, os.Getenv(cfg.RedisPasswordEnv), cfg.RedisDB, cfg.TTL)
	case config.CheckpointBackendPostgres:
		pgCfg, err := checkpoint.LoadPostgresConfigFromEnv()
		if err != nil {
			return nil, err
		}
		return checkpoint.NewPostgresStore(ctx, pgCfg, cfg.TTL)
	default:
		return checkpoint.NewMemoryStore(cfg.TTL), nil
	}
}

// buildDeps assembles the graph node dependencies from configuration.
func buildDeps(cfg *config.Config, crmClient *crm.Client, generator llm.Generator, bus *events.Bus) (router.Deps, error) {
	profileA, err := cfg.GetProfile("A")
	if err != nil {
		return router.Deps{}, err
	}
	profileB, err := cfg.GetProfile("B")
	if err != nil {
		return router.Deps{}, err
	}
	profileC, err := cfg.GetProfile("C")
	if err != nil {
		return router.Deps{}, err
	}

	return router.Deps{
		Reconciler: reconcile.New(crmClient),
		Intel:      intel.NewStage(),
		Supervisor: agent.NewSupervisor(),
		Discovery:  agent.NewSpecialist(models.AgentDiscovery, generator, profileA),
		Qualifier:  agent.NewSpecialist(models.AgentQualifier, generator, profileB),
		Closer:     agent.NewCloser(generator, profileC, crmClient, cfg.CRM),
		Responder:  responder.New(crmClient),
		Bus:        bus,
	}, nil
}
