package memory_test

import (
	"context"
	"errors"
	"testing"

	"journeystitch/contexts/journey-analytics/journey-stitching/adapters/memory"
	"journeystitch/contexts/journey-analytics/journey-stitching/adapters/storetest"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) ports.DocumentStore {
		return memory.NewStore(nil)
	})
}

func TestMemoryStoreFaultHook(t *testing.T) {
	store := memory.NewStore(nil)
	boom := errors.New("store unavailable")
	store.SetFault(func(op string, collection string, _ string) error {
		if op == "update" && collection == "ckmap" {
			return boom
		}
		return nil
	})

	_, err := store.Update(context.Background(), "ckmap", "CK1", func([]byte, bool) ([]byte, error) {
		return []byte(`{}`), nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected fault, got %v", err)
	}
	if err := store.Put(context.Background(), "redirects", "J2", []byte(`{}`)); err != nil {
		t.Fatalf("other operations should pass: %v", err)
	}

	store.SetFault(nil)
	if _, err := store.Update(context.Background(), "ckmap", "CK1", func([]byte, bool) ([]byte, error) {
		return []byte(`{}`), nil
	}); err != nil {
		t.Fatalf("cleared fault should not fail: %v", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := memory.NewStore(nil)
	doc := []byte(`{"a":1}`)
	if err := store.Put(context.Background(), "c", "id", doc); err != nil {
		t.Fatalf("put: %v", err)
	}
	doc[2] = 'b'

	got, _, _ := store.Get(context.Background(), "c", "id")
	if string(got) != `{"a":1}` {
		t.Fatalf("store must not alias caller buffers, got %s", got)
	}
}
