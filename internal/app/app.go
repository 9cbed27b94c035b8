package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/pkg/browser"

	"github.com/ibeckermayer/eventgraph/internal/config"
	"github.com/ibeckermayer/eventgraph/internal/export"
	"github.com/ibeckermayer/eventgraph/internal/ingest"
	"github.com/ibeckermayer/eventgraph/internal/logger"
	"github.com/ibeckermayer/eventgraph/internal/notifier"
	"github.com/ibeckermayer/eventgraph/internal/pipeline"
	"github.com/ibeckermayer/eventgraph/internal/report"
)

// App holds the application state.
type App struct {
	mu         sync.RWMutex
	configPath string
	log        logger.Logger

	// Mutable fields - use getSnapshot() for concurrent access.
	config   *config.Config
	notifier *notifier.Notifier
}

// snapshot holds fields that may be replaced by ReloadConfig.
type snapshot struct {
	config   *config.Config
	notifier *notifier.Notifier
}

// New creates a new App instance. configPath is used by ReloadConfig.
func New(cfg *config.Config, configPath string, log logger.Logger) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}
	n, err := newNotifier(cfg)
	if err != nil {
		return nil, err
	}
	return &App{
		config:     cfg,
		notifier:   n,
		configPath: configPath,
		log:        log,
	}, nil
}

// getSnapshot returns a snapshot of mutable fields under read lock.
func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{
		config:   a.config,
		notifier: a.notifier,
	}
}

// SetNotifier replaces the notifier built from the configuration. nil
// disables notifications.
func (a *App) SetNotifier(n *notifier.Notifier) {
	a.mu.Lock()
	a.notifier = n
	a.mu.Unlock()
}

func newNotifier(cfg *config.Config) (*notifier.Notifier, error) {
	if !cfg.Notify.Enabled {
		return nil, nil
	}
	return notifier.NewFromConfig(cfg.Notify)
}

// Run performs the full load -> pipeline -> export flow over the configured
// input. Each call is an independent batch.
func (a *App) Run(ctx context.Context) (*pipeline.Result, *export.Manifest, error) {
	s := a.getSnapshot()
	cfg := s.config
	log := a.log.With(logger.String("input", cfg.Input.Path))

	table, err := ingest.Load(ctx, cfg.Input.Path, ingest.Options{
		Sheet:       cfg.Input.Sheet,
		DropColumns: cfg.Input.DropColumns,
	})
	if err != nil {
		log.Error("Ingress failed", logger.Error(err))
		return nil, nil, err
	}
	log.Info("Loaded table",
		logger.Int("records", len(table.Posts)),
		logger.Int("columns", len(table.Columns)))

	res, err := pipeline.New(pipeline.OptionsFromConfig(cfg), log).Run(ctx, table)
	if err != nil {
		return nil, nil, err
	}

	exp := export.New(export.Options{
		Dir:     cfg.Output.Dir,
		Event:   cfg.EventToken(),
		SQLite:  cfg.Output.SQLite,
		Report:  cfg.Output.Report,
		Metrics: cfg.Output.Metrics,
	}, log.With(logger.String("run_id", res.RunID)))

	m, err := exp.Write(ctx, res)
	if err != nil {
		log.Error("Egress failed", logger.String("run_id", res.RunID), logger.Error(err))
		return nil, nil, err
	}

	// The run is committed; a failed mail does not undo it.
	if s.notifier != nil {
		if err := a.notify(s.notifier, cfg, res); err != nil {
			log.Warn("Failed to send report", logger.String("run_id", res.RunID), logger.Error(err))
		} else {
			log.Info("Report sent", logger.String("to", cfg.Notify.ToAddr))
		}
	}
	return res, m, nil
}

func (a *App) notify(n *notifier.Notifier, cfg *config.Config, res *pipeline.Result) error {
	b, err := report.New(cfg.EventToken(), report.DefaultMaxHashtags)
	if err != nil {
		return err
	}
	r, err := b.Build(res)
	if err != nil {
		return err
	}
	return n.SendReport(r)
}

// RunJob adapts Run to the scheduler job signature.
func (a *App) RunJob(ctx context.Context) error {
	_, _, err := a.Run(ctx)
	return err
}

// OpenReport opens the last committed report.
func (a *App) OpenReport() error {
	dir := a.getSnapshot().config.Output.Dir

	m, err := export.ReadManifest(dir)
	if err != nil {
		return fmt.Errorf("no committed run in %s: %w", dir, err)
	}
	for _, f := range m.Files {
		if f == export.FileReport {
			path := filepath.Join(dir, f)
			a.log.Info("Opening report", logger.String("path", path))
			return browser.OpenFile(path)
		}
	}
	return fmt.Errorf("run %s has no report", m.RunID)
}

// ReloadConfig reloads the configuration from disk.
func (a *App) ReloadConfig() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	n, err := newNotifier(cfg)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.config = cfg
	a.notifier = n
	a.mu.Unlock()

	a.log.Info("Configuration reloaded")
	return nil
}
