// Package sqlstore implements the durable, single-node backend of the
// store.IStore interface on top of SQLite (via the CGO-free
// modernc.org/sqlite driver).
//
// Implementation Details:
//
//   - Persisted Layout: One table kv_store(key TEXT PRIMARY KEY, value TEXT).
//     The table is created on open if it does not exist yet; there is no
//     further schema migration.
//
//   - Atomic Upserts: Each Put runs as a transaction around an
//     INSERT ... ON CONFLICT(key) DO UPDATE statement. On any failure the
//     transaction is rolled back and the previous value for the key remains
//     intact.
//
//   - No Read Cache: Every Get hits the backing database. The pipeline relies
//     on this to always merge the latest persisted state.
//
// Thread Safety:
//
//	The store is safe for concurrent use by the HTTP handlers and the
//	scheduled refresh. Individual calls are serialized through a single
//	database connection; the store deliberately provides no transaction
//	spanning multiple calls (see the pipeline package for the documented
//	consequences).
package sqlstore
