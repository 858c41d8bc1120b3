package firmware

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Constants for Intel HEX parsing.
const (
	// MinimumRecordLength is the shortest record in hex characters after the colon:
	// count(2) + address(4) + type(2) + checksum(2)
	MinimumRecordLength = 10

	// RecordHeaderSize is the size of count + address + type in bytes
	RecordHeaderSize = 4

	// ErasedByte fills address gaps between records
	ErasedByte = 0xFF

	// MaxImageSize bounds the flattened image to catch corrupt address records
	MaxImageSize = 16 << 20
)

// Intel HEX record types.
const (
	RecordData                   = 0x00
	RecordEOF                    = 0x01
	RecordExtendedSegmentAddress = 0x02
	RecordStartSegmentAddress    = 0x03
	RecordExtendedLinearAddress  = 0x04
	RecordStartLinearAddress     = 0x05
)

// record is a single parsed Intel HEX line.
type record struct {
	address uint16
	kind    byte
	data    []byte
}

type segment struct {
	address uint32
	data    []byte
}

// Load reads a firmware image from path, choosing the decoder from the file
// extension (.hex → Intel HEX, anything else → raw binary).
//
// Example:
//
//	img, err := firmware.Load("Defy_wired.hex", firmware.ImageNeuron, "1.2.0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d bytes at 0x%08X\n", img.Size(), img.StartAddress)
func Load(path, name, version string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var img *Image
	if strings.EqualFold(filepath.Ext(path), ".hex") {
		img, err = ParseHex(f)
	} else {
		img, err = LoadBinary(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	img.Name = name
	img.Version = version
	return img, nil
}

// LoadBinary reads a raw binary image from r.
func LoadBinary(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}

	return &Image{
		Format: FormatBin,
		Data:   data,
		CRC32:  crc32.ChecksumIEEE(data),
	}, nil
}

// ParseHex parses an Intel HEX image from r.
//
// Example:
//
//	img, err := firmware.ParseHex(strings.NewReader(":0400000001020304F2\n:00000001FF\n"))
func ParseHex(r io.Reader) (*Image, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)

	var (
		base     uint32
		segments []segment
		entry    uint32
		sawEOF   bool
		lineNum  int
	)

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines
		if line == "" {
			continue
		}
		if sawEOF {
			return nil, fmt.Errorf("line %d: data after end-of-file record", lineNum)
		}

		rec, err := parseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		switch rec.kind {
		case RecordData:
			segments = append(segments, segment{
				address: base + uint32(rec.address),
				data:    rec.data,
			})
		case RecordEOF:
			sawEOF = true
		case RecordExtendedSegmentAddress:
			if len(rec.data) != 2 {
				return nil, fmt.Errorf("line %d: extended segment address needs 2 bytes, got %d", lineNum, len(rec.data))
			}
			base = (uint32(rec.data[0])<<8 | uint32(rec.data[1])) << 4
		case RecordExtendedLinearAddress:
			if len(rec.data) != 2 {
				return nil, fmt.Errorf("line %d: extended linear address needs 2 bytes, got %d", lineNum, len(rec.data))
			}
			base = (uint32(rec.data[0])<<8 | uint32(rec.data[1])) << 16
		case RecordStartSegmentAddress, RecordStartLinearAddress:
			if len(rec.data) != 4 {
				return nil, fmt.Errorf("line %d: start address needs 4 bytes, got %d", lineNum, len(rec.data))
			}
			entry = uint32(rec.data[0])<<24 | uint32(rec.data[1])<<16 | uint32(rec.data[2])<<8 | uint32(rec.data[3])
		default:
			return nil, fmt.Errorf("line %d: unknown record type 0x%02X", lineNum, rec.kind)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if !sawEOF {
		return nil, fmt.Errorf("missing end-of-file record")
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no data records found in file")
	}

	start, data, err := flatten(segments)
	if err != nil {
		return nil, err
	}

	return &Image{
		Format:       FormatHex,
		StartAddress: start,
		EntryPoint:   entry,
		Data:         data,
		CRC32:        crc32.ChecksumIEEE(data),
	}, nil
}

// parseRecord decodes and checksums a single record.
//
// Record format after the colon:
//
//	[Count(1)][Address(2)][Type(1)][Data(Count)][Checksum(1)]
//
// Address is big-endian.
func parseRecord(line string) (*record, error) {
	if line[0] != ':' {
		return nil, fmt.Errorf("record must start with ':'")
	}
	line = line[1:]

	if len(line) < MinimumRecordLength {
		return nil, fmt.Errorf("record too short: got %d characters, minimum is %d", len(line), MinimumRecordLength)
	}

	raw, err := hex.DecodeString(line)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}

	count := int(raw[0])
	expectedLen := RecordHeaderSize + count + 1
	if len(raw) != expectedLen {
		return nil, fmt.Errorf("data length mismatch: got %d bytes, expected %d (header=%d + data=%d + checksum=1)",
			len(raw), expectedLen, RecordHeaderSize, count)
	}

	checksum := raw[len(raw)-1]
	calculated := calculateChecksum(raw[:len(raw)-1])
	if checksum != calculated {
		return nil, fmt.Errorf("checksum mismatch: got 0x%02X, expected 0x%02X", checksum, calculated)
	}

	rec := &record{
		address: uint16(raw[1])<<8 | uint16(raw[2]),
		kind:    raw[3],
		data:    make([]byte, count),
	}
	copy(rec.data, raw[RecordHeaderSize:RecordHeaderSize+count])

	return rec, nil
}

// flatten lays segments out in one contiguous buffer starting at the lowest address.
func flatten(segments []segment) (uint32, []byte, error) {
	start := segments[0].address
	end := start
	for _, s := range segments {
		if s.address < start {
			start = s.address
		}
		if e := s.address + uint32(len(s.data)); e > end {
			end = e
		}
	}

	size := end - start
	if size > MaxImageSize {
		return 0, nil, fmt.Errorf("image spans %d bytes, maximum is %d", size, MaxImageSize)
	}

	data := make([]byte, size)
	for i := range data {
		data[i] = ErasedByte
	}
	for _, s := range segments {
		copy(data[s.address-start:], s.data)
	}

	return start, data, nil
}

// calculateChecksum computes the 8-bit record checksum.
// Uses basic summation with 2's complement.
func calculateChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum + 1 // 2's complement
}
