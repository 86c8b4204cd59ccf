// Package fetch obtains the secondary dataset (Data B) from a remote HTTP
// JSON endpoint with bounded retry and cache fallback.
//
// The remote source is treated as unreliable infrastructure: serving stale
// cached data is preferred over failing the whole refresh cycle. The retry
// state machine is Idle → Attempting → {Success | RetryWait → Attempting |
// Fallback}; Success and Fallback are the terminal states. A storage failure
// is the only condition that escapes the state machine.
package fetch
