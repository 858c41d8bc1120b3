package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind is the JSON type of a Value.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
)

// Value is a JSON scalar from a backup file.
type Value struct {
	kind ValueKind
	text string
	b    bool
}

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{kind: ValueString, text: s} }

// IntValue returns a number Value.
func IntValue(n int) Value { return Value{kind: ValueNumber, text: strconv.Itoa(n)} }

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value { return Value{kind: ValueBool, b: b} }

// Kind returns the JSON type of v.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is null or absent.
func (v Value) IsNull() bool { return v.kind == ValueNull }

// Text renders v verbatim. Null renders as the empty string.
func (v Value) Text() string {
	switch v.kind {
	case ValueBool:
		return strconv.FormatBool(v.b)
	case ValueNull:
		return ""
	default:
		return v.text
	}
}

// Coerced renders v for the firmware: booleans become 1 or 0.
func (v Value) Coerced() string {
	if v.kind == ValueBool {
		if v.b {
			return "1"
		}
		return "0"
	}
	return v.Text()
}

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch t := tok.(type) {
	case nil:
		*v = Value{}
	case string:
		*v = StringValue(t)
	case json.Number:
		*v = Value{kind: ValueNumber, text: t.String()}
	case bool:
		*v = BoolValue(t)
	default:
		return fmt.Errorf("value must be a string, number or boolean, got %s", data)
	}
	return nil
}

// MarshalJSON writes v back in its original JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.text)
	case ValueNumber:
		return []byte(v.text), nil
	case ValueBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}
