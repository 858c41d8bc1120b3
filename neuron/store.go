package neuron

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("neuron not found")

// NotFoundError indicates that no record exists for an identifier.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("neuron %q not found in registry", e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Store is the neuron registry. Records keep their insertion order: Upsert of
// an existing ID replaces it in place, a new ID is appended.
type Store interface {
	List(ctx context.Context) ([]Record, error)
	Find(ctx context.Context, id string) (Record, error)
	Upsert(ctx context.Context, rec Record) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore returns a store seeded with records.
func NewMemoryStore(records ...Record) *MemoryStore {
	s := &MemoryStore{}
	for _, r := range records {
		s.records = append(s.records, r.Clone())
	}
	return s
}

// List returns a copy of all records in order.
func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out, nil
}

// Find returns the record for id.
func (s *MemoryStore) Find(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return Record{}, &NotFoundError{ID: id}
}

// Upsert stores rec.
func (s *MemoryStore) Upsert(_ context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("neuron record: id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.records {
		if r.ID == rec.ID {
			s.records[i] = rec.Clone()
			return nil
		}
	}
	s.records = append(s.records, rec.Clone())
	return nil
}

// Adopt replaces the record of targetID with incoming while keeping the
// target's identifier. A backup captured on one keyboard therefore takes on the
// identity of the keyboard it is restored to.
//
// The target must already exist; otherwise a *NotFoundError is returned and the
// store is left untouched.
func Adopt(ctx context.Context, store Store, targetID string, incoming Record) (Record, error) {
	if store == nil {
		return Record{}, fmt.Errorf("adopt neuron: registry is required")
	}
	if targetID == "" {
		return Record{}, fmt.Errorf("adopt neuron: target id is required")
	}

	if _, err := store.Find(ctx, targetID); err != nil {
		return Record{}, err
	}

	merged := incoming.Clone()
	merged.ID = targetID

	if err := store.Upsert(ctx, merged); err != nil {
		return Record{}, fmt.Errorf("adopt neuron: %w", err)
	}
	return merged, nil
}
