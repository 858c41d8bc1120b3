package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// PortsCmd implements the 'ports' command.
type PortsCmd struct{}

func (p *PortsCmd) Run(root *CLI) error {
	if _, _, err := root.setup(); err != nil {
		return err
	}

	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		// Fall back to bare names when USB details are unavailable.
		names, err := serial.GetPortsList()
		if err != nil {
			return fmt.Errorf("list ports: %w", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PORT\tUSB ID\tPRODUCT\tSERIAL")
	for _, d := range details {
		id := "-"
		if d.IsUSB {
			id = d.VID + ":" + d.PID
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, id, d.Product, d.SerialNumber)
	}
	return w.Flush()
}
