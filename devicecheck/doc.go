// Package devicecheck verifies a keyboard is safe to flash before a firmware
// update starts.
//
// # State Machine
//
// A Machine moves through an explicit transition table:
//
//	checking             --CHECKS_DONE [checks passed]--> awaitingConfirmation
//	checking             --CHECKS_DONE-------------------> error
//	awaitingConfirmation --PRESSED [can flash]-----------> flashing
//	awaitingConfirmation --CANCEL------------------------> cancelled
//	error                --RETRY-------------------------> checking
//	error                --CANCEL------------------------> cancelled
//	flashing             --FLASHED-----------------------> success
//	flashing             --FLASH_FAILED------------------> error
//
// For each state and event the table holds an ordered list of candidate
// transitions; the first whose guard passes is taken. Events with no matching
// transition are rejected with a *RejectedEventError and leave the machine
// untouched.
//
// # Probes
//
// Entering checking clears every result from the previous attempt and runs the
// probes one at a time, in order: left half connected, right half connected,
// left half in bootloader, right half in bootloader, installed firmware
// version, settings backup. Each probe that completes bumps
// Context.StateBlock; the loading indicator can be dropped once Ready reports
// true. A probe error stops the pipeline and the machine settles in error.
//
// Flashing is only reachable when both halves are connected and a backup was
// captured. Unibody keyboards, which have no independently connected halves,
// skip the four per-half probes and count as connected on both sides.
//
// # Example
//
//	m := devicecheck.New(device, firmwares, devicecheck.NewFocusProber(conn),
//	    devicecheck.WithTransitionCallback(func(s devicecheck.Snapshot) {
//	        fmt.Println(s.State, s.Context.StateBlock)
//	    }),
//	)
//
//	snap, _ := m.Start(ctx)
//	if snap.State == devicecheck.StateAwaitingConfirmation {
//	    snap, err = m.Send(ctx, devicecheck.EventPressed)
//	}
package devicecheck
