package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openmined/plugsync/internal/client/config"
	"github.com/openmined/plugsync/internal/client/controlplane"
	"github.com/openmined/plugsync/internal/client/syncer"
	"github.com/openmined/plugsync/internal/client/workspace"
	"github.com/openmined/plugsync/internal/credential"
	"github.com/openmined/plugsync/internal/plugsdk"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Client wires the sync engine, its scheduler and the optional watcher and
// control plane for one config. It holds the workspace lock until Close.
type Client struct {
	config    *config.Config
	workspace *workspace.Workspace
	sdk       *plugsdk.PlugSDK
	creds     credential.Provider
	tracker   *syncer.Tracker
	engine    *syncer.SyncEngine
	scheduler *syncer.Scheduler
	nudger    *syncer.Nudger
	watcher   *syncer.FileWatcher
	cps       *controlplane.Server
}

// New validates the credential, takes the workspace lock and builds every component.
// Errors that stem from the configuration are *config.ConfigError.
func New(ctx context.Context, cfg *config.Config) (c *Client, err error) {
	creds, err := credential.New(ctx, &cfg.Credential)
	if err != nil {
		return nil, config.WrapConfigError("credential", err)
	}
	if _, err := credential.Resolve(ctx, creds); err != nil {
		return nil, config.WrapConfigError("credential", err)
	}

	sdk, err := plugsdk.New(&plugsdk.Config{
		BaseURL:        cfg.ServerURL,
		RequestTimeout: cfg.RequestTimeout,
		RetryCount:     cfg.RetryCount,
	})
	if err != nil {
		return nil, config.WrapConfigError("server_url", err)
	}

	ws, err := workspace.NewWorkspace(cfg.DataDir)
	if err != nil {
		return nil, config.WrapConfigError("data_dir", err)
	}
	if err := ws.Setup(); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			ws.Unlock()
		}
	}()

	var store syncer.RecordStore
	if cfg.JournalPath != "" {
		journal, err := syncer.NewSyncJournal(cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		store = journal
	}

	tracker, err := syncer.NewTracker(store)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	scanner := syncer.NewScanner(cfg.Directories, cfg.FileTypes, syncer.NewIgnoreList(cfg.Ignore...))
	engine := syncer.NewSyncEngine(scanner, tracker, sdk, creds, syncer.WithWorkers(cfg.Workers))
	nudger := syncer.NewNudger()

	c = &Client{
		config:    cfg,
		workspace: ws,
		sdk:       sdk,
		creds:     creds,
		tracker:   tracker,
		engine:    engine,
		nudger:    nudger,
		scheduler: syncer.NewScheduler(engine, syncer.SchedulerConfig{
			Interval:      cfg.Interval,
			RetryInterval: cfg.RetryInterval,
			Debounce:      cfg.Debounce,
			Nudge:         nudger.C(),
		}),
	}

	if cfg.Watch {
		c.watcher = syncer.NewFileWatcher(scanner, nudger.Nudge)
	}
	if cfg.HTTPAddr != "" {
		c.cps = controlplane.NewServer(&controlplane.Config{
			Addr:      cfg.HTTPAddr,
			AuthToken: cfg.HTTPToken,
		}, c)
	}

	return c, nil
}

// Start runs the daemon until ctx is done.
func (c *Client) Start(ctx context.Context) error {
	slog.Info("plugsync start",
		"server", c.config.ServerURL,
		"directories", c.config.Directories,
		"fileTypes", c.config.FileTypes,
		"credential", c.creds.Name(),
		"journal", c.config.JournalPath != "",
	)

	eg, egCtx := errgroup.WithContext(ctx)

	if c.watcher != nil {
		if err := c.watcher.Start(egCtx); err != nil {
			slog.Warn("file watcher unavailable, relying on the interval", "error", err)
		} else {
			defer c.watcher.Stop()
		}
	}

	eg.Go(func() error {
		return c.scheduler.Run(egCtx)
	})

	if c.cps != nil {
		eg.Go(func() error {
			return c.cps.Start(egCtx)
		})
		eg.Go(func() error {
			<-egCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return c.cps.Stop(shutdownCtx)
		})
	}

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("plugsync daemon: %w", err)
	}

	slog.Info("plugsync stopped")
	return nil
}

// RunOnce performs a single cycle.
func (c *Client) RunOnce(ctx context.Context) (*syncer.CycleReport, error) {
	return c.engine.RunCycle(ctx)
}

// Close releases the journal, idle connections and the workspace lock.
func (c *Client) Close() error {
	c.sdk.Close()
	return errors.Join(c.tracker.Close(), c.workspace.Unlock())
}

func (c *Client) SchedulerState() syncer.State { return c.scheduler.State() }

func (c *Client) NextRun() time.Time { return c.scheduler.NextRun() }

func (c *Client) LastReport() (*syncer.CycleReport, error) { return c.engine.LastReport() }

func (c *Client) Records() []syncer.FileRecord { return c.tracker.Records() }

func (c *Client) PathStatus() []syncer.PathStatus { return c.engine.Status().Snapshot() }

func (c *Client) SyncNow() { c.nudger.Nudge() }
