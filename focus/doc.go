// Package focus implements the host side of the Focus command protocol spoken by
// Kaleidoscope-based keyboards over their USB serial interface.
//
// # Protocol Overview
//
// Focus is a line-oriented request/response protocol:
//
//	Request:  <command>[ <value>]\n
//	Response: [<line>\r\n]... .\r\n
//
// A request is a command name optionally followed by a single space and a value.
// Without a value most commands report their current setting; with a value they
// store it. The device terminates every response with a line holding a single dot.
//
// # Executors
//
// Higher level packages (backup, restore, devicecheck) never touch the serial
// link. They depend on the Executor interface:
//
//	type Executor interface {
//	    Command(ctx context.Context, line string) (string, error)
//	}
//
// Conn is the stock implementation over any io.ReadWriter:
//
//	port, _ := serial.Open("/dev/ttyACM0", &serial.Mode{BaudRate: 115200})
//	conn := focus.NewConn(port, focus.WithCommandInterval(10*time.Millisecond))
//	version, err := conn.Command(ctx, "version")
//
// Conn allows a single in-flight command; concurrent callers are serialized.
//
// # Building Commands
//
// Use BuildCommand so a missing value never leaves a trailing space:
//
//	focus.BuildCommand("led.mode", "0")  // "led.mode 0"
//	focus.BuildCommand("led.mode", "")   // "led.mode"
package focus
