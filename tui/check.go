// Package tui renders the firmware-check panel in the terminal.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/moffa90/go-focus/devicecheck"
)

// SnapshotMsg carries an intermediate machine snapshot into the program.
// Wire it from the machine's transition callback with Program.Send.
type SnapshotMsg devicecheck.Snapshot

// settledMsg is returned when Start or Send returns.
type settledMsg struct {
	snap devicecheck.Snapshot
	err  error
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E3B341"))
)

// CheckModel drives a devicecheck.Machine from the keyboard.
type CheckModel struct {
	machine *devicecheck.Machine
	ctx     context.Context
	spinner spinner.Model

	unibody []string

	snap     devicecheck.Snapshot
	started  bool
	busy     bool
	err      error
	quitting bool
}

// NewCheckModel returns a model for machine. The machine is started by Init.
func NewCheckModel(ctx context.Context, machine *devicecheck.Machine) CheckModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle

	return CheckModel{
		machine: machine,
		ctx:     ctx,
		spinner: s,
		snap:    machine.Snapshot(),
		busy:    true,
	}
}

// WithUnibodyProducts sets the product families rendered without the per-half
// check list.
func (m CheckModel) WithUnibodyProducts(products ...string) CheckModel {
	m.unibody = products
	return m
}

// Snapshot returns the last snapshot the model saw.
func (m CheckModel) Snapshot() devicecheck.Snapshot {
	return m.snap
}

func (m CheckModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start())
}

func (m CheckModel) start() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.machine.Start(m.ctx)
		return settledMsg{snap: snap, err: err}
	}
}

func (m CheckModel) send(ev devicecheck.Event) tea.Cmd {
	return func() tea.Msg {
		snap, err := m.machine.Send(m.ctx, ev)
		return settledMsg{snap: snap, err: err}
	}
}

func (m CheckModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		m.snap = devicecheck.Snapshot(msg)
		return m, nil

	case settledMsg:
		m.snap = msg.snap
		m.err = msg.err
		m.busy = false
		m.started = true
		if m.snap.State.Terminal() {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m CheckModel) handleKey(key string) (tea.Model, tea.Cmd) {
	if key == "q" || key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	if m.busy || !m.started {
		return m, nil
	}

	var ev devicecheck.Event
	actions := m.machine.Actions()
	switch key {
	case "enter":
		switch {
		case slices.Contains(actions, devicecheck.EventPressed):
			ev = devicecheck.EventPressed
		case slices.Contains(actions, devicecheck.EventRetry):
			ev = devicecheck.EventRetry
		}
	case "r":
		ev = devicecheck.EventRetry
	case "esc":
		ev = devicecheck.EventCancel
	}
	if ev == "" || !slices.Contains(actions, ev) {
		return m, nil
	}

	m.busy = true
	m.err = nil
	return m, m.send(ev)
}

// checkItem is one row of the check list.
type checkItem struct {
	label   string
	checked bool
}

func (m CheckModel) items() []checkItem {
	c := m.snap.Context
	// BL rows read as "not in bootloader".
	return []checkItem{
		{label: "Left side connected", checked: c.SideLeftOK},
		{label: "Left side not in bootloader", checked: !c.SideLeftBL},
		{label: "Right side connected", checked: c.SideRightOK},
		{label: "Right side not in bootloader", checked: !c.SideRightBL},
		{label: "Settings backed up", checked: c.Backup != nil},
	}
}

func (m CheckModel) View() string {
	if m.quitting {
		return ""
	}

	c := m.snap.Context
	var b strings.Builder

	b.WriteString(titleStyle.Render("Firmware update: " + c.Device.Name()))
	b.WriteString("\n\n")

	if m.snap.State == devicecheck.StateChecking && !c.Ready() {
		b.WriteString(m.spinner.View() + " Checking your keyboard...")
		return panelStyle.Render(b.String())
	}

	if c.Device.IsUnibody(m.unibody) {
		b.WriteString(m.summary())
	} else {
		for _, item := range m.items() {
			mark := failStyle.Render("✗")
			if item.checked {
				mark = okStyle.Render("✓")
			}
			fmt.Fprintf(&b, "%s %s\n", mark, item.label)
		}
		b.WriteString("\n" + m.summary())
	}

	if c.InstalledVersion != "" {
		status := "update available"
		if c.IsUpdated {
			status = "already up to date"
		}
		fmt.Fprintf(&b, "\nInstalled firmware %s (%s)", c.InstalledVersion, status)
	}

	if m.snap.Err != nil {
		b.WriteString("\n" + failStyle.Render(m.snap.Err.Error()))
	}
	if m.err != nil {
		b.WriteString("\n" + warningStyle.Render(m.err.Error()))
	}

	b.WriteString("\n\n" + hintStyle.Render(m.hint()))
	return panelStyle.Render(b.String())
}

func (m CheckModel) summary() string {
	switch m.snap.State {
	case devicecheck.StateChecking:
		return m.spinner.View() + " Checking your keyboard..."
	case devicecheck.StateAwaitingConfirmation:
		return okStyle.Render("Your keyboard is ready to be updated.")
	case devicecheck.StateFlashing:
		return m.spinner.View() + " Updating firmware..."
	case devicecheck.StateError:
		if !m.snap.Context.BothSidesOK() {
			return warningStyle.Render("Check that both sides are connected and try again.")
		}
		return warningStyle.Render("A check did not pass. Try again.")
	case devicecheck.StateSuccess:
		return okStyle.Render("Firmware updated.")
	default:
		return "Update cancelled."
	}
}

func (m CheckModel) hint() string {
	switch {
	case m.busy:
		return "q quit"
	case m.snap.State == devicecheck.StateAwaitingConfirmation:
		return "enter start update • esc cancel • q quit"
	case m.snap.State == devicecheck.StateError:
		return "enter/r retry • esc cancel • q quit"
	default:
		return "q quit"
	}
}
