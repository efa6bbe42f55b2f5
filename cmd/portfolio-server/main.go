package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dd0wney/portfolio-core/pkg/api"
	"github.com/dd0wney/portfolio-core/pkg/cache"
	"github.com/dd0wney/portfolio-core/pkg/config"
	"github.com/dd0wney/portfolio-core/pkg/connmon"
	"github.com/dd0wney/portfolio-core/pkg/executor"
	"github.com/dd0wney/portfolio-core/pkg/fallback"
	"github.com/dd0wney/portfolio-core/pkg/health"
	"github.com/dd0wney/portfolio-core/pkg/localstore"
	"github.com/dd0wney/portfolio-core/pkg/logging"
	"github.com/dd0wney/portfolio-core/pkg/metrics"
	"github.com/dd0wney/portfolio-core/pkg/orchestrator"
	"github.com/dd0wney/portfolio-core/pkg/remote"
	"github.com/dd0wney/portfolio-core/pkg/server"
)

func main() {
	configPath := flag.String("config", "portfolio.yaml", "Configuration file")
	port := flag.Int("port", 0, "Override the configured port")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "portfolio-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, portOverride int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if portOverride != 0 {
		cfg.Server.Port = portOverride
	}

	// LOG_LEVEL overrides the configured level when set
	logger := logging.NewDefaultLogger()
	if os.Getenv("LOG_LEVEL") == "" {
		logger.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	}
	logger.Info("starting portfolio server",
		logging.Int("port", cfg.Server.Port),
		logging.String("remote", cfg.Remote.BaseURL))

	registry := metrics.NewRegistry()
	checker := health.NewChecker()

	client := remote.NewHTTPClient(cfg.Remote.BaseURL, cfg.Remote.APIKey, logger)

	local := localstore.NewMemoryStore()
	if cfg.Fallback.SnapshotPath != "" {
		if err := localstore.LoadSnapshot(local, cfg.Fallback.SnapshotPath); err != nil {
			logger.Warn("snapshot load failed", logging.Error(err))
		}
	}

	c := cache.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartSweeper(ctx, cfg.Cache.SweepInterval)

	monitor, err := connmon.New(client, cfg.MonitorOptions(), logger, registry)
	if err != nil {
		return err
	}
	defer monitor.Close()
	monitor.Start()

	exec := executor.New(logger)
	router, err := fallback.NewRouter(client, local, c, monitor, exec, cfg.FallbackOptions(), logger, registry)
	if err != nil {
		return err
	}
	defer router.Close()

	orch, err := orchestrator.New(orchestrator.Deps{
		Remote:  client,
		Router:  router,
		Monitor: monitor,
		Cache:   c,
		Local:   local,
		Health:  checker,
		Metrics: registry,
		Logger:  logger,
	}, cfg.OrchestratorOptions())
	if err != nil {
		return err
	}
	defer orch.Close()

	apiServer := api.NewServer(orch, monitor, checker, registry, logger)
	httpServer := server.NewGracefulServer(fmt.Sprintf(":%d", cfg.Server.Port), apiServer.Routes(), logger)

	// Persist the local store when shutdown begins
	if cfg.Fallback.SnapshotPath != "" {
		go func() {
			<-httpServer.ShutdownChannel()
			if err := localstore.SaveSnapshot(local, cfg.Fallback.SnapshotPath); err != nil {
				logger.Error("snapshot save failed", logging.Error(err))
			}
		}()
	}

	return httpServer.Start()
}
