package sqlstore

import (
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/dMerge/lib/store"
	"github.com/ValentinKolb/dMerge/lib/store/storetest"
	"github.com/stretchr/testify/require"
)

func Test(t *testing.T) {
	storetest.RunStoreTests(t, "SQLiteStore", func() (store.IStore, error) {
		return NewSQLiteStore(filepath.Join(t.TempDir(), "dmerge.db"))
	})
}

// Values must survive a close/reopen cycle - that is the whole point of the
// durable backend.
func TestDurability(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "dmerge.db")

	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	require.NoError(t, s.Put(store.KeyDataA, []byte(`{"x":1}`)))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(dsn)
	require.NoError(t, err)
	defer s.Close()

	value, loaded, err := s.Get(store.KeyDataA)
	require.NoError(t, err)
	require.True(t, loaded)
	require.JSONEq(t, `{"x":1}`, string(value))
}

func TestClosedStoreFails(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "dmerge.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Put(store.KeyDataA, []byte(`{}`))
	require.Error(t, err)

	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, store.RetCInternalError, storeErr.Code)
}
