package main

import (
	"fmt"
	"time"

	"github.com/moffa90/go-focus/backup"
)

// PruneCmd implements the 'prune' command.
type PruneCmd struct {
	Frequency *int `help:"Retention setting 0..13 (overrides settings.backup_frequency)"`
}

func (p *PruneCmd) Run(root *CLI) error {
	cfg, logger, err := root.setup()
	if err != nil {
		return err
	}

	frequency := cfg.Settings.BackupFrequency
	if p.Frequency != nil {
		frequency = *p.Frequency
	}
	if _, forever := backup.RetentionWindow(frequency); forever {
		logger.Info("retention keeps every backup, nothing to prune")
		return nil
	}

	folder := cfg.BackupFolder()
	removed, err := folder.Prune(time.Now(), frequency)
	for _, f := range removed {
		fmt.Println(f.Path)
	}
	if err != nil {
		return err
	}
	logger.Info("prune complete", "folder", folder.Dir, "removed", len(removed))
	return nil
}
