package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/moffa90/go-focus/devicecheck"
	"github.com/moffa90/go-focus/firmware"
	"github.com/moffa90/go-focus/tui"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	NeuronFW  string `name:"neuron-fw" help:"Neuron firmware image (Intel HEX or binary)" type:"existingfile"`
	SidesFW   string `name:"sides-fw" help:"Keyscanner firmware image (binary)" type:"existingfile"`
	FWVersion string `name:"fw-version" help:"Version of the firmware images"`
	Flasher   string `help:"Program run to flash the keyboard once the checks pass"`
	NoTUI     bool   `name:"no-tui" help:"Print results instead of running the interactive panel"`
}

func (c *CheckCmd) Run(root *CLI) error {
	cfg, logger, err := root.setup()
	if err != nil {
		return err
	}

	firmwares, err := c.loadFirmwares()
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

	prober := devicecheck.NewFocusProber(sess.conn,
		devicecheck.WithNeuronStore(store),
		devicecheck.WithBackupFolder(cfg.BackupFolder()),
		devicecheck.WithProberLogger(logger),
	)

	var program *tea.Program
	opts := []devicecheck.Option{
		devicecheck.WithLogger(logger),
		devicecheck.WithUnibodyProducts(cfg.Device.UnibodyProducts...),
		devicecheck.WithFlasher(c.flasher(sess.device.Path, logger)),
		devicecheck.WithTransitionCallback(func(s devicecheck.Snapshot) {
			if program != nil {
				program.Send(tui.SnapshotMsg(s))
			}
		}),
	}
	machine := devicecheck.New(sess.device, firmwares, prober, opts...)

	var snap devicecheck.Snapshot
	if c.NoTUI {
		snap, err = machine.Start(ctx)
		if err != nil {
			return err
		}
		printSnapshot(snap)
	} else {
		model := tui.NewCheckModel(ctx, machine).WithUnibodyProducts(cfg.Device.UnibodyProducts...)
		program = tea.NewProgram(model, tea.WithContext(ctx))
		final, err := program.Run()
		if err != nil {
			return fmt.Errorf("check panel: %w", err)
		}
		snap = final.(tui.CheckModel).Snapshot()
	}

	switch snap.State {
	case devicecheck.StateError:
		if snap.Err != nil {
			return snap.Err
		}
		return errors.New("device checks did not pass")
	case devicecheck.StateCancelled:
		return errors.New("update cancelled")
	}
	return nil
}

func (c *CheckCmd) loadFirmwares() (firmware.Set, error) {
	set := firmware.Set{}
	if c.NeuronFW != "" {
		img, err := firmware.Load(c.NeuronFW, firmware.ImageNeuron, c.FWVersion)
		if err != nil {
			return nil, fmt.Errorf("load neuron firmware: %w", err)
		}
		set[firmware.ImageNeuron] = img
	}
	if c.SidesFW != "" {
		img, err := firmware.Load(c.SidesFW, firmware.ImageSides, c.FWVersion)
		if err != nil {
			return nil, fmt.Errorf("load keyscanner firmware: %w", err)
		}
		set[firmware.ImageSides] = img
	}
	return set, nil
}

// flasher hands the keyboard over to an external flashing program. The
// program gets the port, firmware paths and pre-flash backup in its
// environment.
func (c *CheckCmd) flasher(port string, logger *slog.Logger) devicecheck.Flasher {
	return devicecheck.FlasherFunc(func(ctx context.Context, dc devicecheck.Context) error {
		if c.Flasher == "" {
			return errors.New("no flasher configured (pass --flasher)")
		}

		cmd := exec.CommandContext(ctx, c.Flasher)
		cmd.Env = append(os.Environ(),
			"FOCUS_PORT="+port,
			"FOCUS_NEURON_FW="+c.NeuronFW,
			"FOCUS_SIDES_FW="+c.SidesFW,
			"FOCUS_BACKUP="+dc.BackupPath,
		)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr

		logger.Info("starting flasher", "program", c.Flasher, "port", port)
		return cmd.Run()
	})
}

func printSnapshot(s devicecheck.Snapshot) {
	c := s.Context
	mark := func(ok bool) string {
		if ok {
			return "ok"
		}
		return "FAIL"
	}

	fmt.Printf("Device:            %s\n", c.Device.Name())
	fmt.Printf("Left connected:    %s\n", mark(c.SideLeftOK))
	fmt.Printf("Left bootloader:   %t\n", c.SideLeftBL)
	fmt.Printf("Right connected:   %s\n", mark(c.SideRightOK))
	fmt.Printf("Right bootloader:  %t\n", c.SideRightBL)
	fmt.Printf("Firmware:          %s (up to date: %t)\n", c.InstalledVersion, c.IsUpdated)
	fmt.Printf("Backup:            %s\n", mark(c.Backup != nil))
	if c.BackupPath != "" {
		fmt.Printf("Backup file:       %s\n", c.BackupPath)
	}
	fmt.Printf("State:             %s\n", s.State)
}
