package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when no snapshot exists for a session ID.
var ErrNotFound = errors.New("session not found")

// Snapshot is the stored form of a live session.
type Snapshot struct {
	ID        string    `json:"id"`
	ExamID    string    `json:"exam_id"`
	Ledger    Ledger    `json:"ledger"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps session snapshots for as long as the session is alive.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, id string) (Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	snapshots map[string]Snapshot
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]Snapshot),
	}
}

func (s *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	if snap.ID == "" {
		return errors.New("session id is required")
	}
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}
	snap.Ledger = snap.Ledger.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.ID] = snap
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	snap.Ledger = snap.Ledger.Clone()
	return snap, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[id]; !ok {
		return ErrNotFound
	}
	delete(s.snapshots, id)
	return nil
}
