package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/moffa90/go-focus/config"
	"github.com/moffa90/go-focus/focus"
	"github.com/moffa90/go-focus/neuron"
)

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"focus.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Port    string           `short:"p" help:"Serial port of the keyboard (overrides device.port)"`
	Product string           `help:"Product family of the keyboard when the port does not report one"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Ports      PortsCmd      `cmd:"" help:"List serial ports"`
	Check      CheckCmd      `cmd:"" help:"Run the pre-update device checks"`
	Backup     BackupCmd     `cmd:"" help:"Capture the keyboard settings into the backup folder"`
	Restore    RestoreCmd    `cmd:"" help:"Replay a backup file onto the keyboard"`
	Prune      PruneCmd      `cmd:"" help:"Remove backups older than the retention setting"`
	Autobackup AutobackupCmd `cmd:"" help:"Run periodic backups and pruning until interrupted"`

	// openPort opens the keyboard link. Nil means the serial port.
	openPort portOpener `kong:"-"`
}

// portOpener opens the link to the keyboard on the named port.
type portOpener func(name string, baud int) (io.ReadWriteCloser, error)

func openSerial(name string, baud int) (io.ReadWriteCloser, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	return port, nil
}

// setup loads the configuration and builds the logger.
func (c *CLI) setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if c.Port != "" {
		cfg.Device.Port = c.Port
	}
	return cfg, logger, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// session is an open connection to one keyboard.
type session struct {
	link   io.ReadWriteCloser
	conn   *focus.Conn
	device *focus.Device
}

func (c *CLI) connect(cfg *config.Config, logger *slog.Logger) (*session, error) {
	portName := cfg.Device.Port
	if portName == "" {
		return nil, fmt.Errorf("no serial port configured: pass --port or set device.port")
	}

	open := c.openPort
	if open == nil {
		open = openSerial
	}
	link, err := open(portName, cfg.Device.Baud)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", portName, err)
	}

	device := &focus.Device{Path: portName, Info: focus.Info{Product: c.Product}}
	if device.Info.Product == "" {
		device.Info = detectInfo(portName, logger)
	}

	conn := focus.NewConn(link,
		focus.WithLogger(logger),
		focus.WithCommandInterval(cfg.Device.CommandInterval),
	)
	if v, err := conn.Command(context.Background(), focus.CmdVersion); err == nil {
		device.Info.Firmware = strings.TrimSpace(v)
	}

	logger.Info("connected", "port", portName, "device", device.Name(), "firmware", device.Info.Firmware)
	return &session{link: link, conn: conn, device: device}, nil
}

func (s *session) Close() error {
	return s.link.Close()
}

// detectInfo reads the USB identity of portName, when the OS reports one.
func detectInfo(portName string, logger *slog.Logger) focus.Info {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		logger.Debug("port enumeration failed", "error", err)
		return focus.Info{}
	}
	for _, p := range ports {
		if p.Name != portName || !p.IsUSB {
			continue
		}
		return focus.Info{
			Vendor:  fmt.Sprintf("%s:%s", p.VID, p.PID),
			Product: p.Product,
			Serial:  p.SerialNumber,
		}
	}
	return focus.Info{}
}

// openRegistry opens the neuron registry database.
func openRegistry(cfg *config.Config) (*neuron.SQLiteStore, error) {
	path := cfg.Registry.Path
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create registry dir: %w", err)
		}
	}
	store, err := neuron.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("open neuron registry: %w", err)
	}
	return store, nil
}

// readNeuronID asks the keyboard for its neuron identifier.
func readNeuronID(ctx context.Context, exec focus.Executor) (string, error) {
	resp, err := exec.Command(ctx, focus.CmdHardwareChipID)
	if err != nil {
		return "", fmt.Errorf("read neuron id: %w", err)
	}
	id := focus.ParseChipID(resp)
	if id == "" {
		return "", fmt.Errorf("keyboard reported an empty neuron id")
	}
	return id, nil
}

// registerNeuron returns the registry record of the connected keyboard,
// adding one named after the device when the neuron is new.
func registerNeuron(ctx context.Context, sess *session, store neuron.Store) (neuron.Record, error) {
	id, err := readNeuronID(ctx, sess.conn)
	if err != nil {
		return neuron.Record{}, err
	}

	rec, err := store.Find(ctx, id)
	if errors.Is(err, neuron.ErrNotFound) {
		rec = neuron.Record{ID: id, Name: sess.device.Name()}
		err = store.Upsert(ctx, rec)
	}
	if err != nil {
		return neuron.Record{}, fmt.Errorf("neuron registry: %w", err)
	}
	return rec, nil
}
