package firmware

import "strings"

// Format identifies the on-disk encoding of an image.
type Format string

const (
	FormatHex Format = "hex"
	FormatBin Format = "bin"
)

// Well-known image identifiers within a Set.
const (
	// ImageNeuron is the controller firmware
	ImageNeuron = "neuron"

	// ImageSides is the keyscanner firmware flashed to both halves
	ImageSides = "sides"
)

// Image describes one firmware payload.
type Image struct {
	// Name is the identifier of the image within its Set
	Name string

	// Version is the firmware version the image carries
	Version string

	// Format is the encoding the image was loaded from
	Format Format

	// StartAddress is the flash address of Data[0]
	StartAddress uint32

	// EntryPoint is the start address record, when the HEX file carries one
	EntryPoint uint32

	// Data is the flattened payload
	Data []byte

	// CRC32 is the IEEE checksum of Data
	CRC32 uint32
}

// Size returns the payload length in bytes.
func (img *Image) Size() int {
	if img == nil {
		return 0
	}
	return len(img.Data)
}

// Set maps image identifiers to images. It is read-only once handed to a
// device-check machine.
type Set map[string]*Image

// Version returns the version of the named image, or "" if absent.
func (s Set) Version(name string) string {
	if img, ok := s[name]; ok && img != nil {
		return img.Version
	}
	return ""
}

// UpToDate reports whether the installed firmware already matches the neuron
// image in the set. An unknown target version is never considered up to date.
func (s Set) UpToDate(installed string) bool {
	target := s.Version(ImageNeuron)
	if target == "" || installed == "" {
		return false
	}
	return normalizeVersion(installed) == normalizeVersion(target)
}

func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "v")
	v = strings.TrimPrefix(v, "V")
	return v
}
