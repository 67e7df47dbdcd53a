package testutil

import (
	"testing"
	"time"
)

func TestNewTestStore(t *testing.T) {
	store := NewTestStore(t)
	ctx, cancel := NewTestContext()
	defer cancel()

	coll, err := store.AddCollection(ctx, "abc123", time.Unix(1_700_000_000, 0))
	if err != nil {
		t.Fatalf("add collection: %v", err)
	}
	if coll.ID == "" {
		t.Fatal("expected a collection id")
	}
}
