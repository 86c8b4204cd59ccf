// Package store provides the key-value persistence contract the merge
// pipeline depends on: a durable mapping from string key to an opaque JSON
// text blob with upsert and point-lookup semantics and unified error
// handling.
//
// The package focuses on:
//   - A unified interface (IStore) for key-value operations across different backends
//   - A structured error reporting mechanism using typed error codes
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining Put/Get operations for
//     interacting with the key-value table. All implementations share this
//     common interface, allowing the pipeline to switch between different
//     storage backends without code changes. Absence of a key is reported via
//     a boolean, not an error - only real persistence failures produce errors.
//
//   - Error System: Typed error codes with descriptive messages. A storage
//     error is never locally recoverable: it always propagates to the caller
//     (and is surfaced at the HTTP boundary as a generic 500).
//
//   - Factory Type: A constructor function type shared by the serve command
//     and the contract test suite, so both construct backends the same way.
//
// Implementations:
//
//	The package includes two implementations of the IStore interface:
//
//	- SQLite Store (sqlstore): The durable backend. A single table of
//	  (key TEXT PRIMARY KEY, value TEXT) pairs, written transactionally so a
//	  failed upsert leaves the previous value intact.
//	  Available in the "github.com/ValentinKolb/dMerge/lib/store/sqlstore" package.
//
//	- Memory Store (memstore): A concurrent in-memory implementation used by
//	  tests and for ephemeral deployments (DSN "mem://"). Data does not
//	  survive process restarts.
//	  Available in the "github.com/ValentinKolb/dMerge/lib/store/memstore" package.
package store
