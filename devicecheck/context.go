package devicecheck

import (
	"github.com/moffa90/go-focus/backup"
	"github.com/moffa90/go-focus/firmware"
	"github.com/moffa90/go-focus/focus"
)

// ReadyThreshold is the number of completed probes after which the loading
// indicator is dropped.
const ReadyThreshold = 4

// Context is the machine's working memory.
type Context struct {
	// Device is the keyboard under check. Never modified.
	Device *focus.Device

	// Firmwares are the images the update will install. Never modified.
	Firmwares firmware.Set

	SideLeftOK  bool
	SideRightOK bool

	// SideLeftBL and SideRightBL report whether a half currently sits in its
	// bootloader. Informational; they do not gate flashing.
	SideLeftBL  bool
	SideRightBL bool

	// Backup is the settings snapshot taken before flashing. Flashing is
	// unreachable while it is nil.
	Backup *backup.Payload

	// BackupPath is where Backup was saved, when a backup folder is configured.
	BackupPath string

	// InstalledVersion is the firmware version the keyboard reported.
	InstalledVersion string

	// IsUpdated reports whether the installed firmware already matches Firmwares.
	IsUpdated bool

	// StateBlock counts completed probes.
	StateBlock int
}

// Ready reports whether enough probes have completed to stop showing a
// loading indicator.
func (c Context) Ready() bool {
	return c.StateBlock > ReadyThreshold
}

// BothSidesOK reports whether both halves answered the connectivity probe.
func (c Context) BothSidesOK() bool {
	return c.SideLeftOK && c.SideRightOK
}

// reset returns a fresh context for a new checking pass.
func (c Context) reset() Context {
	return Context{
		Device:    c.Device,
		Firmwares: c.Firmwares,
	}
}

func (c *Context) setSide(side focus.Side, ok bool) {
	if side == focus.SideLeft {
		c.SideLeftOK = ok
	} else {
		c.SideRightOK = ok
	}
}

func (c *Context) setBootloader(side focus.Side, bl bool) {
	if side == focus.SideLeft {
		c.SideLeftBL = bl
	} else {
		c.SideRightBL = bl
	}
}

func (c Context) sideOK(side focus.Side) bool {
	if side == focus.SideLeft {
		return c.SideLeftOK
	}
	return c.SideRightOK
}

// Snapshot is a copy of the machine's state at one point in time. Backup and
// Firmwares are shared with the machine and must be treated as read-only.
type Snapshot struct {
	State   State
	Context Context

	// Err is the probe or flash error that led to StateError, if any.
	Err error
}
