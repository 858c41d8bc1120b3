package neuron

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Record is a neuron identity record. ID and Name are typed; every other field
// of the stored JSON object is kept verbatim in Extra so that records written
// by other tools round-trip unchanged.
type Record struct {
	ID    string
	Name  string
	Extra map[string]json.RawMessage
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := Record{ID: r.ID, Name: r.Name}
	if r.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// MarshalJSON flattens Extra next to id and name.
func (r Record) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(r.Extra)+2)
	maps.Copy(obj, r.Extra)

	id, err := json.Marshal(r.ID)
	if err != nil {
		return nil, err
	}
	obj["id"] = id

	if r.Name != "" {
		name, err := json.Marshal(r.Name)
		if err != nil {
			return nil, err
		}
		obj["name"] = name
	}
	return json.Marshal(obj)
}

// UnmarshalJSON accepts any JSON object with a string id.
func (r *Record) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("neuron record: %w", err)
	}
	if obj == nil {
		return fmt.Errorf("neuron record: expected object")
	}

	*r = Record{}
	if raw, ok := obj["id"]; ok {
		if err := json.Unmarshal(raw, &r.ID); err != nil {
			return fmt.Errorf("neuron record: id must be a string: %w", err)
		}
		delete(obj, "id")
	}
	if raw, ok := obj["name"]; ok {
		if err := json.Unmarshal(raw, &r.Name); err != nil {
			return fmt.Errorf("neuron record: name must be a string: %w", err)
		}
		delete(obj, "name")
	}
	if len(obj) > 0 {
		r.Extra = obj
	}
	return nil
}
