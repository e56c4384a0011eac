// Package persist stores board snapshots so a board survives a restart.
package persist

import (
	"context"
	"slices"
	"sync"

	"example.com/scoreboard/pkg/scoreboard"
)

// Store is the contract for keeping board snapshots.
// Load reports a missing board as (Snapshot{}, false, nil).
type Store interface {
	Save(ctx context.Context, boardID string, snap scoreboard.Snapshot) error
	Load(ctx context.Context, boardID string) (scoreboard.Snapshot, bool, error)
	Delete(ctx context.Context, boardID string) error
	List(ctx context.Context) ([]string, error)
}

// MemoryStore keeps snapshots in process memory. Used in dev and tests.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]scoreboard.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m: make(map[string]scoreboard.Snapshot),
	}
}

func (s *MemoryStore) Save(_ context.Context, boardID string, snap scoreboard.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[boardID] = cloneSnapshot(snap)
	return nil
}

func (s *MemoryStore) Load(_ context.Context, boardID string) (scoreboard.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.m[boardID]
	if !ok {
		return scoreboard.Snapshot{}, false, nil
	}
	return cloneSnapshot(snap), true, nil
}

func (s *MemoryStore) Delete(_ context.Context, boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, boardID)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.m))
	for id := range s.m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func cloneSnapshot(snap scoreboard.Snapshot) scoreboard.Snapshot {
	return scoreboard.Snapshot{
		Matches: append([]scoreboard.MatchState(nil), snap.Matches...),
		LastSeq: snap.LastSeq,
	}
}
