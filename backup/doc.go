// Package backup models keyboard settings backups: loading them from disk,
// capturing them from a live device, storing them in the backup folder and
// pruning old ones.
//
// # File Formats
//
// Three JSON shapes are accepted:
//
//	{"virtual": {"<command>": {"data": <value>, "eraseable": <bool>}, ...}}
//	[{"command": "<command>", "data": <value>}, ...]
//	{"backup": [{"command": ..., "data": ...}, ...], "neuron": {"id": "...", ...}}
//
// Parse decides the shape once, from the top-level structure, and returns a
// Payload tagged with its Kind. Consumers switch on Kind and never probe for
// optional fields again. A file that fits none of the shapes is rejected with a
// *FormatError before anything reaches the device.
//
// The order of entries, including the keys of a "virtual" object, is the order
// in the file. Replay depends on it.
//
// # Values
//
// Backup values are JSON scalars. Value keeps the literal text of numbers and
// offers two renderings: Text (booleans as true/false) and Coerced (booleans as
// 1/0, the form the firmware expects).
package backup
