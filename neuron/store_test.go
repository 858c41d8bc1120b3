package neuron

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories lets every behavioural test run against both stores.
func storeFactories(t *testing.T) map[string]func(...Record) Store {
	t.Helper()
	return map[string]func(...Record) Store{
		"memory": func(seed ...Record) Store {
			return NewMemoryStore(seed...)
		},
		"sqlite": func(seed ...Record) Store {
			s, err := NewSQLiteStore(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			for _, r := range seed {
				require.NoError(t, s.Upsert(context.Background(), r))
			}
			return s
		},
	}
}

func TestRecordJSON(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":"abc","name":"Desk","layers":[1,2],"superkeys":{"a":1}}`), &rec))

	assert.Equal(t, "abc", rec.ID)
	assert.Equal(t, "Desk", rec.Name)
	assert.JSONEq(t, `[1,2]`, string(rec.Extra["layers"]))

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc","name":"Desk","layers":[1,2],"superkeys":{"a":1}}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"id":5}`), &rec))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &rec))
}

func TestRecordClone(t *testing.T) {
	rec := Record{ID: "a", Extra: map[string]json.RawMessage{"k": json.RawMessage(`1`)}}
	clone := rec.Clone()
	clone.Extra["k"][0] = '2'
	assert.Equal(t, `1`, string(rec.Extra["k"]))
}

func TestStoreOrderAndUpsert(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(Record{ID: "a", Name: "first"}, Record{ID: "b", Name: "second"})

			require.NoError(t, store.Upsert(ctx, Record{ID: "a", Name: "renamed"}))
			require.NoError(t, store.Upsert(ctx, Record{ID: "c", Name: "third"}))

			list, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, []string{"a", "b", "c"}, []string{list[0].ID, list[1].ID, list[2].ID})
			assert.Equal(t, "renamed", list[0].Name)

			_, err = store.Find(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.Error(t, store.Upsert(ctx, Record{Name: "no id"}))
		})
	}
}

func TestAdopt(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(Record{ID: "other"}, Record{ID: "new-7", Name: "Old name"})

			incoming := Record{ID: "old-1", Name: "X", Extra: map[string]json.RawMessage{"layers": json.RawMessage(`[]`)}}
			got, err := Adopt(ctx, store, "new-7", incoming)
			require.NoError(t, err)
			assert.Equal(t, "new-7", got.ID)
			assert.Equal(t, "X", got.Name)
			assert.Equal(t, "old-1", incoming.ID, "incoming record must not be mutated")

			stored, err := store.Find(ctx, "new-7")
			require.NoError(t, err)
			assert.Equal(t, "X", stored.Name)
			assert.JSONEq(t, `[]`, string(stored.Extra["layers"]))

			_, err = store.Find(ctx, "old-1")
			assert.ErrorIs(t, err, ErrNotFound, "source identity must not leak into the registry")

			list, err := store.List(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 2)
		})
	}
}

func TestAdoptMissingTarget(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(Record{ID: "a"})

	_, err := Adopt(ctx, store, "zzz", Record{ID: "b", Name: "X"})
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "zzz", nf.ID)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = Adopt(ctx, nil, "a", Record{})
	assert.Error(t, err)
	_, err = Adopt(ctx, store, "", Record{})
	assert.Error(t, err)
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "neurons.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, Record{ID: "a", Name: "Desk"}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.Find(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Desk", rec.Name)
}
