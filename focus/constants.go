package focus

// Well-known Focus commands.
const (
	// CmdHelp lists every command the firmware understands, one per line
	CmdHelp = "help"

	// CmdVersion reports the installed firmware version
	CmdVersion = "version"

	// CmdLEDMode selects the active LED effect
	CmdLEDMode = "led.mode"

	// CmdSideConnected reports whether a keyscanner half is reachable (arg: side)
	CmdSideConnected = "upgrade.keyscanner.isConnected"

	// CmdSideBootloader reports whether a keyscanner half sits in its bootloader (arg: side)
	CmdSideBootloader = "upgrade.keyscanner.isBootloader"

	// CmdHardwareChipID reports the neuron's unique chip identifier
	CmdHardwareChipID = "hardware.chip_id"
)

// ResetLEDMode is sent after every restore to leave the keyboard on its default effect.
const ResetLEDMode = CmdLEDMode + " 0"

// ResponseTerminator is the line that ends every Focus response.
const ResponseTerminator = "."

// DefaultBaudRate is the line speed used by the keyboards' CDC-ACM interface.
const DefaultBaudRate = 115200
