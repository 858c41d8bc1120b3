package focus

import (
	"context"
	"fmt"
	"strings"
)

// Executor sends a single Focus command line to a connected device and waits for
// the device to acknowledge it. The returned string is the response body without
// the terminator line.
//
// Implementations must not allow more than one command in flight per device.
type Executor interface {
	Command(ctx context.Context, line string) (string, error)
}

// ExecutorFunc adapts an ordinary function to the Executor interface.
type ExecutorFunc func(ctx context.Context, line string) (string, error)

// Command calls f(ctx, line).
func (f ExecutorFunc) Command(ctx context.Context, line string) (string, error) {
	return f(ctx, line)
}

// BuildCommand joins a command name and its value with a single space.
// Surrounding whitespace is trimmed, so an empty value yields the bare name.
func BuildCommand(name, value string) string {
	return strings.TrimSpace(name + " " + value)
}

// SplitCommand separates a command line into its name and value.
func SplitCommand(line string) (name, value string) {
	line = strings.TrimSpace(line)
	name, value, _ = strings.Cut(line, " ")
	return name, strings.TrimSpace(value)
}

// ParseBool interprets a probe answer. Firmware revisions answer with either
// "true"/"false" or "1"/"0".
func ParseBool(resp string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(resp)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("unexpected boolean response %q", resp)
	}
}

// ParseChipID extracts the neuron identifier from the response to
// CmdHardwareChipID. Only the first token is the identifier; some firmware
// appends the chip revision after it. It returns "" for an empty response.
func ParseChipID(resp string) string {
	if fields := strings.Fields(resp); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// ParseHelp splits the response to CmdHelp into command names.
func ParseHelp(resp string) []string {
	fields := strings.Fields(resp)
	commands := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == ResponseTerminator {
			continue
		}
		commands = append(commands, f)
	}
	return commands
}
