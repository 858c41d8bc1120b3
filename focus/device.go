package focus

import "strings"

// Side identifies one half of a split keyboard. The numeric value is the
// argument the keyscanner commands expect.
type Side int

const (
	SideLeft  Side = 0
	SideRight Side = 1
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "unknown"
	}
}

// Sides lists both halves in probe order.
var Sides = []Side{SideLeft, SideRight}

// DefaultUnibodyProducts are the product families built as a single unit with
// no independently connected halves.
var DefaultUnibodyProducts = []string{"Raise"}

// Info is the identity block reported by a connected keyboard.
type Info struct {
	Vendor       string `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Product      string `json:"product" yaml:"product"`
	KeyboardType string `json:"keyboardType,omitempty" yaml:"keyboard_type,omitempty"`
	DisplayName  string `json:"displayName,omitempty" yaml:"display_name,omitempty"`
	Firmware     string `json:"firmware,omitempty" yaml:"firmware,omitempty"`
	Serial       string `json:"serial,omitempty" yaml:"serial,omitempty"`
}

// Device identifies a connected physical unit. It is owned by the caller and
// passed by reference; nothing in this module mutates it.
type Device struct {
	// Path is the serial port the device is attached to
	Path string

	Info Info
}

// IsUnibody reports whether the device's product family is one of unibody.
// A nil or empty list falls back to DefaultUnibodyProducts.
func (d *Device) IsUnibody(unibody []string) bool {
	if d == nil {
		return false
	}
	if len(unibody) == 0 {
		unibody = DefaultUnibodyProducts
	}
	for _, p := range unibody {
		if strings.EqualFold(d.Info.Product, p) {
			return true
		}
	}
	return false
}

// Name returns the most descriptive label available for the device.
func (d *Device) Name() string {
	if d == nil {
		return ""
	}
	if d.Info.DisplayName != "" {
		return d.Info.DisplayName
	}
	if d.Info.KeyboardType != "" {
		return d.Info.Product + " " + d.Info.KeyboardType
	}
	return d.Info.Product
}
