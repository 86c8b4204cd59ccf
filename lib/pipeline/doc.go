// Package pipeline implements the fetch–merge–persist core of the service.
//
// Data flow: a client submission of Data A triggers an immediate recompute
// (SaveDataA), while the Scheduler independently triggers a periodic refresh
// (FetchAndMerge: re-fetch Data B, recompute). Both paths funnel through the
// same merge step and the same store.
//
// Key Components:
//
//   - Document: a JSON object with opaque top-level values, plus the shallow
//     merge rule (Data B's keys take precedence over Data A's on collision).
//
//   - Service: the orchestrator. It only ever reads and writes through the
//     store.IStore interface and never reaches into the underlying storage
//     directly. Data C is created exclusively by the merge step and only when
//     both inputs exist; if a side is missing, the previously published Data C
//     stays as is (stale or absent) rather than being recomputed to a partial
//     state.
//
//   - Scheduler: drives Service.FetchAndMerge on a fixed interval with an
//     immediate first run, at most one in-flight execution (overlapping ticks
//     are dropped, not queued) and a graceful drain on Stop.
//
// Concurrency:
//
//	The request-handling path may run Data A writes concurrently with an
//	in-flight scheduled refresh. The store serializes individual Put/Get
//	calls but provides no cross-call transaction, so a merge in one path can
//	observe a half-updated state written by the other. This race is accepted
//	and documented behavior; the single-flight scheduler only rules out two
//	concurrent refresh runs.
package pipeline
