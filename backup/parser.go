package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/moffa90/go-focus/neuron"
)

// FormatError indicates that a file is not a valid backup.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid backup: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid backup: %s", e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// IsFormatError returns true if err is or wraps a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// Parse loads a backup file from path.
//
// Example:
//
//	payload, err := backup.Parse("Defy-20240101120000.json")
//	if backup.IsFormatError(err) {
//	    fmt.Println("The file is not a valid global backup")
//	}
func Parse(path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseReader(f)
}

// ParseReader loads a backup from any io.Reader.
func ParseReader(r io.Reader) (*Payload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &FormatError{Reason: "empty file"}
	}
	if !json.Valid(data) {
		return nil, &FormatError{Reason: "not a JSON document"}
	}

	switch data[0] {
	case '[':
		return parseSequence(data)
	case '{':
		return parseObject(data)
	default:
		return nil, &FormatError{Reason: "top level must be an object or an array"}
	}
}

func parseSequence(data []byte) (*Payload, error) {
	entries, err := parseEntries(data)
	if err != nil {
		return nil, err
	}
	return NewSequence(entries), nil
}

func parseObject(data []byte) (*Payload, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &FormatError{Reason: "malformed object", Err: err}
	}

	if raw, ok := top["virtual"]; ok {
		fields, err := parseVirtual(raw)
		if err != nil {
			return nil, err
		}
		return NewVirtual(fields), nil
	}

	if raw, ok := top["backup"]; ok {
		entries, err := parseEntries(raw)
		if err != nil {
			return nil, err
		}
		rawNeuron, ok := top["neuron"]
		if !ok || bytes.Equal(bytes.TrimSpace(rawNeuron), []byte("null")) {
			return nil, &FormatError{Reason: "envelope is missing its neuron record"}
		}
		var rec neuron.Record
		if err := json.Unmarshal(rawNeuron, &rec); err != nil {
			return nil, &FormatError{Reason: "malformed neuron record", Err: err}
		}
		return &Payload{Kind: KindEnvelope, Entries: entries, Neuron: &rec}, nil
	}

	return nil, &FormatError{Reason: `object has neither "virtual" nor "backup"`}
}

// parseEntries decodes a non-empty array of {command, data}.
func parseEntries(data []byte) ([]Entry, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &FormatError{Reason: "entries must be an array", Err: err}
	}
	if len(raw) == 0 {
		return nil, &FormatError{Reason: "backup holds no commands"}
	}

	entries := make([]Entry, 0, len(raw))
	for i, item := range raw {
		var e Entry
		if err := json.Unmarshal(item, &e); err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("entry %d", i), Err: err}
		}
		if e.Command == "" {
			return nil, &FormatError{Reason: fmt.Sprintf("entry %d has no command", i)}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// parseVirtual walks the virtual object token by token to keep key order.
// A repeated key keeps its first position and its last value.
func parseVirtual(data []byte) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, &FormatError{Reason: "malformed virtual section", Err: err}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, &FormatError{Reason: "virtual section must be an object"}
	}

	var fields []Field
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &FormatError{Reason: "malformed virtual section", Err: err}
		}
		key, _ := keyTok.(string)

		var raw struct {
			Data      Value           `json:"data"`
			Eraseable json.RawMessage `json:"eraseable"`
		}
		if err := dec.Decode(&raw); err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("virtual field %q", key), Err: err}
		}

		f := Field{
			Command: key,
			Data:    raw.Data,
			// Only a literal true marks a field as replayable.
			Eraseable: bytes.Equal(bytes.TrimSpace(raw.Eraseable), []byte("true")),
		}
		if i, seen := index[key]; seen {
			fields[i] = f
			continue
		}
		index[key] = len(fields)
		fields = append(fields, f)
	}

	return fields, nil
}
