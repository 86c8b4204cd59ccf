// Package memstore implements a purely in-memory backend of the store.IStore
// interface on top of a concurrent map (xsync.MapOf). Data is not persisted
// between process restarts.
//
// It exists for two reasons: the test suites of the fetcher, pipeline and API
// need a store without filesystem setup, and the serve command accepts the
// "mem://" DSN for throwaway deployments. Values are copied on Put and Get so
// callers can never alias the stored bytes.
package memstore
