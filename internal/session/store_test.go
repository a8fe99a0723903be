package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-exam/internal/session"
)

func TestMemoryStore_SaveLoad(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()

	l := session.NewLedger()
	l.Answers[0] = "b"
	l.Correctness[0] = true

	if err := store.Save(ctx, session.Snapshot{ID: "s1", ExamID: "mcq", Ledger: l}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.ExamID != "mcq" || got.Ledger.Answers[0] != "b" {
		t.Errorf("Load() = %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set on save")
	}
}

func TestMemoryStore_IsolatesLedgers(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()

	l := session.NewLedger()
	l.Answers[0] = "b"
	store.Save(ctx, session.Snapshot{ID: "s1", Ledger: l})
	l.Answers[0] = "changed after save"

	got, _ := store.Load(ctx, "s1")
	if got.Ledger.Answers[0] != "b" {
		t.Errorf("Answers[0] = %q, store should hold its own copy", got.Ledger.Answers[0])
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Load(ctx, "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()

	store.Save(ctx, session.Snapshot{ID: "s1", Ledger: session.NewLedger()})
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, session.ErrNotFound) {
		t.Error("Load() after Delete should return ErrNotFound")
	}
}

func TestMemoryStore_RequiresID(t *testing.T) {
	store := session.NewMemoryStore()
	if err := store.Save(context.Background(), session.Snapshot{}); err == nil {
		t.Error("Save() should reject a snapshot without id")
	}
}

func TestRedisStore_NilClient(t *testing.T) {
	if _, err := session.NewRedisStore(nil, time.Minute); err == nil {
		t.Error("NewRedisStore() should reject a nil client")
	}
}

func TestRedisStore_Key(t *testing.T) {
	if got := session.Key("abc"); got != "exam:session:abc" {
		t.Errorf("Key() = %q, want exam:session:abc", got)
	}
}

func TestRedisStore_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:59999",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store, err := session.NewRedisStore(client, 0)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	ctx := t.Context()
	if err := store.Save(ctx, session.Snapshot{ID: "s1", Ledger: session.NewLedger()}); err == nil {
		t.Error("Save() should fail for an unreachable host")
	}
	if _, err := store.Load(ctx, "s1"); err == nil || errors.Is(err, session.ErrNotFound) {
		t.Errorf("Load() error = %v, want a connection error", err)
	}
}
