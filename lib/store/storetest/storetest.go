// Package storetest provides a shared contract test suite for store.IStore
// implementations. Every backend runs the same suite so that the pipeline can
// rely on identical semantics regardless of the configured DSN.
package storetest

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/dMerge/lib/store"
)

// RunStoreTests runs the contract test suite against a store.IStore
// implementation. The factory is invoked once per sub-test so every case
// starts from an empty store.
func RunStoreTests(t *testing.T, name string, factory store.Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("PutGetRoundTrip", func(t *testing.T) {
			testPutGetRoundTrip(t, mustCreate(t, factory))
		})

		t.Run("Upsert", func(t *testing.T) {
			testUpsert(t, mustCreate(t, factory))
		})

		t.Run("Absent", func(t *testing.T) {
			testAbsent(t, mustCreate(t, factory))
		})

		t.Run("EmptyKey", func(t *testing.T) {
			testEmptyKey(t, mustCreate(t, factory))
		})

		t.Run("ValueIsolation", func(t *testing.T) {
			testValueIsolation(t, mustCreate(t, factory))
		})

		t.Run("ConcurrentAccess", func(t *testing.T) {
			testConcurrentAccess(t, mustCreate(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func mustCreate(t *testing.T, factory store.Factory) store.IStore {
	t.Helper()
	s, err := factory()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return s
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutGetRoundTrip(t *testing.T, s store.IStore) {
	documents := map[string][]byte{
		store.KeyDataA: []byte(`{"items":[{"id":1}],"vatRates":{"normal":{"ratePct":19}}}`),
		store.KeyDataB: []byte(`{"specials":["soup"]}`),
		store.KeyDataC: []byte(`{}`),
	}

	for key, value := range documents {
		if err := s.Put(key, value); err != nil {
			t.Fatalf("Put(%s) failed: %v", key, err)
		}
	}

	for key, expected := range documents {
		value, loaded, err := s.Get(key)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", key, err)
		}
		if !loaded {
			t.Errorf("Expected key %s to exist after Put", key)
		}
		if !bytes.Equal(value, expected) {
			t.Errorf("Expected value %s for key %s, got %s", expected, key, value)
		}
	}
}

func testUpsert(t *testing.T, s store.IStore) {
	testKey := "data_a"
	testValue1 := []byte(`{"version":1}`)
	testValue2 := []byte(`{"version":2}`)

	if err := s.Put(testKey, testValue1); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(testKey, testValue2); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	value, loaded, err := s.Get(testKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !loaded {
		t.Errorf("Expected key %s to exist after upsert", testKey)
	}
	if !bytes.Equal(value, testValue2) {
		t.Errorf("Expected last written value %s, got %s", testValue2, value)
	}
}

func testAbsent(t *testing.T, s store.IStore) {
	value, loaded, err := s.Get("nonexistent-key")
	if err != nil {
		t.Errorf("Absent key must not be an error, got: %v", err)
	}
	if loaded {
		t.Errorf("Expected nonexistent key to return loaded=false")
	}
	if value != nil {
		t.Errorf("Expected nil value for absent key, got %s", value)
	}
}

func testEmptyKey(t *testing.T, s store.IStore) {
	if err := s.Put("", []byte("{}")); err == nil {
		t.Errorf("Expected Put with empty key to fail")
	}
	if _, _, err := s.Get(""); err == nil {
		t.Errorf("Expected Get with empty key to fail")
	}
}

func testValueIsolation(t *testing.T, s store.IStore) {
	testKey := "data_b"
	original := []byte(`{"cached":true}`)

	buf := make([]byte, len(original))
	copy(buf, original)

	if err := s.Put(testKey, buf); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Mutating the caller's slice after Put must not change the stored value.
	buf[2] = 'X'

	value, _, err := s.Get(testKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(value, original) {
		t.Errorf("Stored value aliased the caller's slice: got %s", value)
	}

	// Mutating the returned slice must not change the stored value either.
	value[2] = 'Y'
	again, _, err := s.Get(testKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(again, original) {
		t.Errorf("Get returned a reference to the stored value: got %s", again)
	}
}

func testConcurrentAccess(t *testing.T, s store.IStore) {
	const (
		writers = 8
		rounds  = 50
	)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", w)
			for i := 0; i < rounds; i++ {
				value := []byte(fmt.Sprintf(`{"writer":%d,"round":%d}`, w, i))
				if err := s.Put(key, value); err != nil {
					t.Errorf("concurrent Put failed: %v", err)
					return
				}
				if _, _, err := s.Get(key); err != nil {
					t.Errorf("concurrent Get failed: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	// Every key must hold its writer's last value.
	for w := 0; w < writers; w++ {
		key := fmt.Sprintf("key-%d", w)
		expected := []byte(fmt.Sprintf(`{"writer":%d,"round":%d}`, w, rounds-1))
		value, loaded, err := s.Get(key)
		if err != nil || !loaded {
			t.Fatalf("Get(%s) after concurrent writes failed: loaded=%t err=%v", key, loaded, err)
		}
		if !bytes.Equal(value, expected) {
			t.Errorf("Expected final value %s for key %s, got %s", expected, key, value)
		}
	}
}
