package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/moffa90/go-focus/backup"
	"github.com/moffa90/go-focus/neuron"
)

// BackupCmd implements the 'backup' command.
type BackupCmd struct {
	Out string `short:"o" help:"Backup folder (overrides settings.backup_folder)" type:"path"`
}

func (b *BackupCmd) Run(root *CLI) error {
	cfg, logger, err := root.setup()
	if err != nil {
		return err
	}

	sess, err := root.connect(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	store, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	folder := cfg.BackupFolder()
	if b.Out != "" {
		folder = backup.Folder{Dir: b.Out}
	}

	path, err := saveBackup(ctx, sess, store, folder, logger)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// saveBackup captures the keyboard settings into an envelope carrying its
// neuron record and writes it to folder. Unknown neurons are registered.
func saveBackup(ctx context.Context, sess *session, store neuron.Store, folder backup.Folder, logger *slog.Logger) (string, error) {
	entries, err := backup.Capture(ctx, sess.conn, backup.WithCaptureLogger(logger))
	if err != nil {
		return "", fmt.Errorf("capture settings: %w", err)
	}

	rec, err := registerNeuron(ctx, sess, store)
	if err != nil {
		return "", err
	}

	path, err := folder.Save(rec.ID, backup.NewEnvelope(entries, rec), time.Now())
	if err != nil {
		return "", err
	}
	logger.Info("backup saved", "path", path, "commands", len(entries))
	return path, nil
}
