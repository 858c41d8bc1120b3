// Package restore replays saved backups onto a connected keyboard.
//
// # Overview
//
// An Engine turns a backup.Payload into Focus command lines and issues them
// through a focus.Executor one at a time, waiting for each acknowledgement
// before sending the next. Every successful restore ends with the fixed
// command "led.mode 0" so the keyboard leaves whatever LED preview mode the
// replay put it in.
//
// # Backup Kinds
//
// Virtual backups replay only the fields marked eraseable, verbatim and in
// file order. Sequence and envelope backups replay every entry, with boolean
// values sent as 1 or 0. Before an envelope is replayed its neuron record is
// adopted into the registry under the identifier of the keyboard being
// restored, so the keyboard keeps its identity while taking on the backup's
// settings.
//
// # Failure Semantics
//
// The first command the device rejects stops the replay. Commands already
// acknowledged stay applied, nothing is rolled back and "led.mode 0" is not
// sent. The returned *CommandError names the failing command and its
// position.
//
// # Example
//
//	payload, err := backup.Parse("Defy-20240101120000.json")
//	if err != nil {
//	    return err
//	}
//
//	engine := restore.New(conn,
//	    restore.WithNeuronStore(store),
//	    restore.WithProgressCallback(func(p restore.Progress) {
//	        fmt.Printf("[%s] %d/%d %s\n", p.Phase, p.Index, p.Total, p.Command)
//	    }),
//	)
//
//	err = engine.Restore(ctx, payload, restore.Target{NeuronID: "a1b2c3"})
//	var cmdErr *restore.CommandError
//	if errors.As(err, &cmdErr) {
//	    fmt.Printf("stopped at %q\n", cmdErr.Command)
//	}
package restore
