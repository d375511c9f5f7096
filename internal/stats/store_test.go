package stats

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb, "testnet")
}

func TestStoreAppendAndAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	want := []Sample{
		{Block: 100, BlockTime: 12.1, Pending: 3, Weight: 500_000, ObservedAt: 1700000000},
		{Block: 101, BlockTime: 11.9, Pending: 0, Weight: 250_000, ObservedAt: 1700000012},
	}
	for _, s := range want {
		if err := store.Append(ctx, s); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := store.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("samples: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %+v want %+v", i, got[i], want[i])
		}
	}

	n, err := store.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 2 {
		t.Errorf("len: got %d want 2", n)
	}
}

func TestStoreSkipsMalformedEntries(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store := NewStore(rdb, "testnet")

	if err := store.Append(ctx, Sample{Block: 1, BlockTime: 12}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := mr.RPush(store.key, "not json"); err != nil {
		t.Fatalf("push garbage: %v", err)
	}
	if err := store.Append(ctx, Sample{Block: 2, BlockTime: 13}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := store.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("samples: got %d want 2", len(got))
	}
	if got[0].Block != 1 || got[1].Block != 2 {
		t.Errorf("blocks: got %d, %d", got[0].Block, got[1].Block)
	}
}

func TestStoreClear(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Append(ctx, Sample{Block: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	n, err := store.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 0 {
		t.Errorf("len after clear: got %d want 0", n)
	}
}

func TestStoreKeysAreNetworkScoped(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	finney := NewStore(rdb, "finney")
	test := NewStore(rdb, "test")

	if err := finney.Append(ctx, Sample{Block: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}

	n, err := test.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 0 {
		t.Errorf("test network should have no samples, got %d", n)
	}
}
