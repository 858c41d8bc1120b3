// Package neuron holds the registry of neuron identity records.
//
// A neuron is the controller module of one physical keyboard. Its record carries
// the user-facing identity (name, per-neuron preferences) that must survive a
// settings restore. The registry is an ordered collection keyed by identifier and
// is accessed through the Store interface, so callers pass it explicitly instead
// of reaching into shared application state.
//
// Two stores are provided: MemoryStore for tests and short-lived processes, and
// SQLiteStore for the persistent registry used by the CLI.
//
// Adopt implements the identity-preserving merge used when restoring a backup
// captured on one keyboard onto another:
//
//	rec, err := neuron.Adopt(ctx, store, "new-7", incoming)
//	// rec.ID == "new-7", every other field comes from incoming
package neuron
