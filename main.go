package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ibeckermayer/eventgraph/internal/app"
	"github.com/ibeckermayer/eventgraph/internal/config"
	"github.com/ibeckermayer/eventgraph/internal/logger"
	"github.com/ibeckermayer/eventgraph/internal/scheduler"
)

// jobTimeout bounds one scheduled batch run.
const jobTimeout = 30 * time.Minute

func main() {
	configPath, err := config.ConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve config path: %v\n", err)
		os.Exit(1)
	}

	// Load or create configuration
	cfg, created, err := config.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration %s: %v\n", configPath, err)
		os.Exit(1)
	}

	log := logger.Must(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	defer func() { _ = log.Sync() }()

	if created {
		// First run - write the defaults so they can be edited
		if err := cfg.Save(configPath); err != nil {
			log.Warn("Could not save default config", logger.Error(err))
		} else {
			log.Info("Created default config", logger.String("path", configPath))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, configPath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up: %v\n", err)
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("eventgraph starting...", logger.String("config", configPath))

	if cfg.Schedule.Cron == "" {
		if _, m, err := a.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
			_ = log.Sync()
			os.Exit(1)
		} else {
			log.Info("Run complete", logger.String("run_id", m.RunID), logger.String("dir", cfg.Output.Dir))
		}
		return
	}

	if err := runScheduled(ctx, cfg, a, log); err != nil {
		fmt.Fprintf(os.Stderr, "Scheduler failed: %v\n", err)
		_ = log.Sync()
		os.Exit(1)
	}
}

// runScheduled re-runs the whole batch on the configured cron spec until ctx
// is cancelled. SIGHUP reloads the configuration for the next run.
func runScheduled(ctx context.Context, cfg *config.Config, a *app.App, log logger.Logger) error {
	s, err := scheduler.New(cfg.Schedule.Timezone, jobTimeout, log)
	if err != nil {
		return err
	}
	if err := s.AddPipelineJob(cfg.Schedule.Cron, a.RunJob); err != nil {
		return err
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	s.Start()
	for {
		select {
		case <-ctx.Done():
			<-s.Stop().Done()
			return nil
		case <-hup:
			if err := a.ReloadConfig(); err != nil {
				log.Error("Config reload failed", logger.Error(err))
			}
		}
	}
}
