package main

import (
	"fmt"

	"github.com/moffa90/go-focus/backup"
	"github.com/moffa90/go-focus/focus"
	"github.com/moffa90/go-focus/restore"
)

// RestoreCmd implements the 'restore' command.
type RestoreCmd struct {
	File     string `arg:"" help:"Backup file to replay" type:"existingfile"`
	NeuronID string `name:"neuron-id" help:"Registry identifier of the target keyboard (read from the keyboard by default)"`
	All      bool   `help:"Replay commands the keyboard firmware does not list in help"`
}

func (r *RestoreCmd) Run(root *CLI) error {
	cfg, logger, err := root.setup()
	if err != nil {
		return err
	}

	// Validate the file before touching the keyboard.
	payload, err := backup.Parse(r.File)
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

	target := restore.Target{NeuronID: r.NeuronID}
	if payload.Kind == backup.KindEnvelope && target.NeuronID == "" {
		rec, err := registerNeuron(ctx, sess, store)
		if err != nil {
			return err
		}
		target.NeuronID = rec.ID
	}
	if !r.All && payload.Kind != backup.KindVirtual {
		help, err := sess.conn.Command(ctx, focus.CmdHelp)
		if err != nil {
			return fmt.Errorf("list commands: %w", err)
		}
		target.Supported = focus.ParseHelp(help)
	}

	engine := restore.New(sess.conn,
		restore.WithNeuronStore(store),
		restore.WithLogger(logger),
		restore.WithProgressCallback(func(p restore.Progress) {
			if p.Phase == restore.PhaseReplaying {
				logger.Debug("replaying", "run", p.RunID, "index", p.Index+1, "total", p.Total, "command", p.Command)
			}
		}),
	)

	if err := engine.Restore(ctx, payload, target); err != nil {
		return err
	}
	fmt.Printf("Restored %s backup (%d entries) from %s\n", payload.Kind, payload.Len(), r.File)
	return nil
}
