package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/moffa90/go-focus/focus"
	"github.com/moffa90/go-focus/neuron"
)

// Kind discriminates the three backup shapes.
type Kind int

const (
	// KindVirtual is a map of command → {data, eraseable}
	KindVirtual Kind = iota + 1

	// KindSequence is a bare ordered list of {command, data}
	KindSequence

	// KindEnvelope is {backup: [...], neuron: {...}}
	KindEnvelope
)

func (k Kind) String() string {
	switch k {
	case KindVirtual:
		return "virtual"
	case KindSequence:
		return "sequence"
	case KindEnvelope:
		return "envelope"
	default:
		return "unknown"
	}
}

// Field is one entry of a virtual backup.
type Field struct {
	Command string
	Data    Value

	// Eraseable marks fields that are meant to be written back. Everything
	// else is informational and never replayed.
	Eraseable bool
}

// Line renders the command line for f.
func (f Field) Line() string {
	return focus.BuildCommand(f.Command, f.Data.Text())
}

// Entry is one command of a sequence or envelope backup.
type Entry struct {
	Command string `json:"command"`
	Data    Value  `json:"data"`
}

// Line renders the command line for e with booleans coerced to 1/0.
func (e Entry) Line() string {
	return focus.BuildCommand(e.Command, e.Data.Coerced())
}

// Payload is a loaded backup. Exactly one of Virtual or Entries is used,
// according to Kind; Neuron is set only for KindEnvelope.
type Payload struct {
	Kind    Kind
	Virtual []Field
	Entries []Entry
	Neuron  *neuron.Record
}

// NewSequence returns a KindSequence payload.
func NewSequence(entries []Entry) *Payload {
	return &Payload{Kind: KindSequence, Entries: entries}
}

// NewEnvelope returns a KindEnvelope payload carrying the neuron record the
// settings were captured with.
func NewEnvelope(entries []Entry, rec neuron.Record) *Payload {
	clone := rec.Clone()
	return &Payload{Kind: KindEnvelope, Entries: entries, Neuron: &clone}
}

// NewVirtual returns a KindVirtual payload.
func NewVirtual(fields []Field) *Payload {
	return &Payload{Kind: KindVirtual, Virtual: fields}
}

// Len returns the number of entries or fields in the payload.
func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	if p.Kind == KindVirtual {
		return len(p.Virtual)
	}
	return len(p.Entries)
}

type envelopeJSON struct {
	Backup []Entry         `json:"backup"`
	Neuron *neuron.Record `json:"neuron"`
}

type fieldJSON struct {
	Data      Value `json:"data"`
	Eraseable bool  `json:"eraseable"`
}

// MarshalJSON writes p in the file shape matching its Kind.
func (p *Payload) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case KindSequence:
		entries := p.Entries
		if entries == nil {
			entries = []Entry{}
		}
		return json.Marshal(entries)
	case KindEnvelope:
		entries := p.Entries
		if entries == nil {
			entries = []Entry{}
		}
		return json.Marshal(envelopeJSON{Backup: entries, Neuron: p.Neuron})
	case KindVirtual:
		// Written by hand so the field order survives.
		var buf bytes.Buffer
		buf.WriteString(`{"virtual":{`)
		for i, f := range p.Virtual {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Command)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(fieldJSON{Data: f.Data, Eraseable: f.Eraseable})
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteString(`}}`)
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("cannot encode backup of kind %s", p.Kind)
	}
}

// Write encodes p as indented JSON to w.
func Write(w io.Writer, p *Payload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err = w.Write(out.Bytes())
	return err
}
