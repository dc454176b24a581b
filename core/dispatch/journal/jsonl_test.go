package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONLStoreAppendQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "journal.jsonl")
	store, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	recs := []Record{
		{Timestamp: time.Now(), Minute: 0, Candidates: []string{"1", "2"}, Routes: []RouteRecord{{VehicleID: "TA01", Strategy: "replace", Orders: []string{"1"}}}},
		{Timestamp: time.Now(), Minute: 30, Candidates: []string{"3"}, Routes: []RouteRecord{{VehicleID: "TB02", Strategy: "insertion", Orders: []string{"3"}}}},
		{Timestamp: time.Now(), Minute: 90, Candidates: []string{"2"}},
	}
	for _, r := range recs {
		if err := store.Append(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := store.Query(ctx, Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records got %d", len(all))
	}

	byVehicle, _ := store.Query(ctx, Query{VehicleID: "TB02"})
	if len(byVehicle) != 1 || byVehicle[0].Minute != 30 {
		t.Fatalf("unexpected vehicle filter result %+v", byVehicle)
	}

	byOrder, _ := store.Query(ctx, Query{OrderID: "2"})
	if len(byOrder) != 2 {
		t.Fatalf("expected order 2 in two rounds got %d", len(byOrder))
	}

	window, _ := store.Query(ctx, Query{FromMinute: 10, ToMinute: 60})
	if len(window) != 1 || window[0].Minute != 30 {
		t.Fatalf("unexpected window result %+v", window)
	}
}

func TestJSONLStoreCancelled(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "j.jsonl"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Append(ctx, Record{}); err == nil {
		t.Fatal("expected context error")
	}
}
