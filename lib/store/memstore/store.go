package memstore

import (
	"github.com/ValentinKolb/dMerge/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

type storeImpl struct {
	entries *xsync.MapOf[string, []byte]
}

// NewMemoryStore creates a new in-memory store instance.
// This store implementation is not durable and only intended for tests and
// ephemeral deployments (DSN "mem://").
//
// Thread-safety: all operations are safe for concurrent use.
func NewMemoryStore() store.IStore {
	return &storeImpl{
		entries: xsync.NewMapOf[string, []byte](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Put(key string, value []byte) error {
	if key == "" {
		return store.NewError(store.RetCInvalidOperation, "key must not be empty")
	}

	// Copy so later mutations of the caller's slice can not leak into the store.
	stored := make([]byte, len(value))
	copy(stored, value)
	s.entries.Store(key, stored)
	return nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, store.NewError(store.RetCInvalidOperation, "key must not be empty")
	}

	value, loaded := s.entries.Load(key)
	if !loaded {
		return nil, false, nil
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (s *storeImpl) Close() error {
	return nil
}
