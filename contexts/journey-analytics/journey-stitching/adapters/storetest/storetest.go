// Package storetest holds the behaviour every ports.DocumentStore adapter must share.
package storetest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

// Run exercises newStore against the document store contract.
// newStore must return an empty store for each call.
func Run(t *testing.T, newStore func(t *testing.T) ports.DocumentStore) {
	t.Helper()

	t.Run("get missing document", func(t *testing.T) {
		store := newStore(t)
		_, found, err := store.Get(context.Background(), "ckmap", "missing")
		if err != nil {
			t.Fatalf("get should not fail: %v", err)
		}
		if found {
			t.Fatalf("expected missing document")
		}
	})

	t.Run("put replaces whole document", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		if err := store.Put(ctx, "events-2025.01.01", "E1", []byte(`{"v":1}`)); err != nil {
			t.Fatalf("first put: %v", err)
		}
		if err := store.Put(ctx, "events-2025.01.01", "E1", []byte(`{"v":2}`)); err != nil {
			t.Fatalf("second put: %v", err)
		}
		doc, found, err := store.Get(ctx, "events-2025.01.01", "E1")
		if err != nil || !found {
			t.Fatalf("expected stored document, found=%v err=%v", found, err)
		}
		if string(doc) != `{"v":2}` {
			t.Fatalf("expected overwritten document, got %s", doc)
		}
	})

	t.Run("multi get omits missing ids", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		mustPut(t, store, "ckmap", "CK1", `{"ck":"CK1"}`)
		mustPut(t, store, "ckmap", "CK3", `{"ck":"CK3"}`)
		mustPut(t, store, "redirects", "CK2", `{"from":"CK2"}`)

		docs, err := store.MultiGet(ctx, "ckmap", []string{"CK1", "CK2", "CK3", "CK4"})
		if err != nil {
			t.Fatalf("multi get: %v", err)
		}
		if len(docs) != 2 || string(docs["CK1"]) != `{"ck":"CK1"}` || string(docs["CK3"]) != `{"ck":"CK3"}` {
			t.Fatalf("unexpected multi get result: %v", docs)
		}

		empty, err := store.MultiGet(ctx, "ckmap", nil)
		if err != nil || len(empty) != 0 {
			t.Fatalf("expected empty result for no ids, got %v err=%v", empty, err)
		}
	})

	t.Run("update upserts and modifies", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		stored, err := store.Update(ctx, "journeys-v1", "J1", func(current []byte, found bool) ([]byte, error) {
			if found {
				t.Fatalf("document should start absent")
			}
			return []byte(`{"n":1}`), nil
		})
		if err != nil || string(stored) != `{"n":1}` {
			t.Fatalf("expected upsert, got %s err=%v", stored, err)
		}

		stored, err = store.Update(ctx, "journeys-v1", "J1", func(current []byte, found bool) ([]byte, error) {
			if !found || string(current) != `{"n":1}` {
				t.Fatalf("expected previous value, got %s found=%v", current, found)
			}
			return []byte(`{"n":2}`), nil
		})
		if err != nil || string(stored) != `{"n":2}` {
			t.Fatalf("expected update, got %s err=%v", stored, err)
		}
	})

	t.Run("skip write leaves document untouched", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		mustPut(t, store, "redirects", "J2", `{"to":"J1"}`)

		stored, err := store.Update(ctx, "redirects", "J2", func([]byte, bool) ([]byte, error) {
			return nil, ports.ErrSkipWrite
		})
		if err != nil {
			t.Fatalf("skip write must not fail: %v", err)
		}
		if string(stored) != `{"to":"J1"}` {
			t.Fatalf("expected current document back, got %s", stored)
		}

		_, err = store.Update(ctx, "redirects", "J9", func([]byte, bool) ([]byte, error) {
			return nil, ports.ErrSkipWrite
		})
		if err != nil {
			t.Fatalf("skip write on absent document must not fail: %v", err)
		}
		if _, found, _ := store.Get(ctx, "redirects", "J9"); found {
			t.Fatalf("skip write must not create a document")
		}
	})

	t.Run("update error aborts write", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		mustPut(t, store, "ckmap", "CK1", `{"journeyId":"J1"}`)

		boom := errors.New("boom")
		if _, err := store.Update(ctx, "ckmap", "CK1", func([]byte, bool) ([]byte, error) {
			return nil, boom
		}); !errors.Is(err, boom) {
			t.Fatalf("expected update func error, got %v", err)
		}
		doc, _, _ := store.Get(ctx, "ckmap", "CK1")
		if string(doc) != `{"journeyId":"J1"}` {
			t.Fatalf("document changed after failed update: %s", doc)
		}
	})

	t.Run("concurrent updates are atomic per document", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		const writers = 16

		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Update(ctx, "counters", "shared", func(current []byte, found bool) ([]byte, error) {
					n := 0
					if found {
						parsed, err := strconv.Atoi(string(current))
						if err != nil {
							return nil, err
						}
						n = parsed
					}
					return []byte(strconv.Itoa(n + 1)), nil
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent update failed: %v", err)
			}
		}

		doc, _, err := store.Get(ctx, "counters", "shared")
		if err != nil {
			t.Fatalf("get counter: %v", err)
		}
		if string(doc) != strconv.Itoa(writers) {
			t.Fatalf("expected %d, got %s", writers, doc)
		}
	})
}

func mustPut(t *testing.T, store ports.DocumentStore, collection string, id string, doc string) {
	t.Helper()
	if err := store.Put(context.Background(), collection, id, []byte(doc)); err != nil {
		t.Fatalf("put %s/%s: %v", collection, id, err)
	}
}
