// Package firmware loads the firmware images handed to the device-check and
// flashing workflow.
//
// # Image Formats
//
// Two on-disk formats are accepted:
//
//   - Intel HEX (.hex) for the neuron controller
//   - raw binary (.bin) for the keyscanner halves
//
// Intel HEX is line based, every record hex-encoded after a colon:
//
//	:[Count(2)][Address(4)][Type(2)][Data(2*Count)][Checksum(2)]
//
// Example record:
//
//	:0400000001020304F2
//	  04 = byte count
//	  0000 = address (big-endian)
//	  00 = record type (data)
//	  01020304 = data
//	  F2 = checksum (2's complement of the byte sum)
//
// Records are flattened into one contiguous image; gaps are filled with 0xFF,
// the erased value of flash.
//
// # Sets
//
// A Set maps image identifiers to images. The device-check machine receives a
// Set and compares the neuron image version with the installed firmware:
//
//	set := firmware.Set{}
//	img, err := firmware.Load("Defy_wired.hex", firmware.ImageNeuron, "1.2.0")
//	set[firmware.ImageNeuron] = img
package firmware
