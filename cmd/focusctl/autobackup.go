package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/moffa90/go-focus/backup"
	"github.com/moffa90/go-focus/config"
	"github.com/moffa90/go-focus/metrics"
	"github.com/moffa90/go-focus/neuron"
)

// AutobackupCmd implements the 'autobackup' command.
type AutobackupCmd struct {
	Interval    time.Duration `help:"Time between backups (overrides settings.autobackup_interval)"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address (overrides metrics.addr)"`
}

func (a *AutobackupCmd) Run(root *CLI) error {
	cfg, logger, err := root.setup()
	if err != nil {
		return err
	}

	interval := cfg.Settings.AutoBackupInterval
	if a.Interval > 0 {
		interval = a.Interval
	}
	addr := cfg.Metrics.Addr
	if a.MetricsAddr != "" {
		addr = a.MetricsAddr
	}

	store, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if addr != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", "addr", addr)
	}

	folder := cfg.BackupFolder()
	scheduler, err := newBackupScheduler(root, cfg, logger, store, folder, recorder, interval)
	if err != nil {
		return err
	}
	scheduler.Start()
	logger.Info("autobackup running", "interval", interval, "folder", folder.Dir)

	<-ctx.Done()
	return scheduler.Stop()
}

// newBackupScheduler registers the backup and prune jobs. The scheduler is
// shut down again when a job cannot be registered.
func newBackupScheduler(root *CLI, cfg *config.Config, logger *slog.Logger, store neuron.Store, folder backup.Folder, recorder metrics.Recorder, interval time.Duration) (*backup.Scheduler, error) {
	scheduler, err := backup.NewScheduler(logger)
	if err != nil {
		return nil, err
	}

	_, err = scheduler.ScheduleAutoBackup(interval, func(jobCtx context.Context) error {
		return backupOnce(jobCtx, root, cfg, logger, store, folder)
	})
	if err == nil {
		_, err = scheduler.SchedulePrune(interval, folder, cfg.Settings.BackupFrequency, func(n int) {
			recorder.IncBackupsPruned(n)
		})
	}
	if err != nil {
		_ = scheduler.Stop()
		return nil, err
	}
	return scheduler, nil
}

// backupOnce connects and saves one backup. The port is only held for the
// duration of the backup so other tools can use the keyboard between runs.
func backupOnce(ctx context.Context, root *CLI, cfg *config.Config, logger *slog.Logger, store neuron.Store, folder backup.Folder) error {
	sess, err := root.connect(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	_, err = saveBackup(ctx, sess, store, folder, logger)
	return err
}
