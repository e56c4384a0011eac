// Package boards serves many scoreboards to concurrent callers. Each board is
// a scoreboard.Board behind its own lock, cached in memory and saved to a
// persist.Store after every change.
package boards

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"example.com/scoreboard/internal/persist"
	"example.com/scoreboard/pkg/scoreboard"
)

var ErrBoardNotFound = errors.New("board not found")

const subscriberBuffer = 4

type entry struct {
	mu      sync.Mutex
	board   *scoreboard.Board
	deleted bool

	subs    map[int]chan []scoreboard.Match
	nextSub int
}

// Service is the in-memory cache of boards plus restore from the snapshot
// store on first use after a restart.
type Service struct {
	mu     sync.Mutex
	boards map[string]*entry
	// bumped by every Delete; a restore that raced a delete loads again
	deletes uint64

	store persist.Store
	log   *slog.Logger
}

func NewService(store persist.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		boards: make(map[string]*entry),
		store:  store,
		log:    log,
	}
}

// Create makes a new empty board and saves it right away.
func (s *Service) Create(ctx context.Context) (string, error) {
	for {
		id, err := randID(10)
		if err != nil {
			return "", fmt.Errorf("board id: %w", err)
		}

		s.mu.Lock()
		_, cached := s.boards[id]
		s.mu.Unlock()
		if cached {
			continue
		}
		_, found, err := s.store.Load(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check board id: %w", err)
		}
		if found {
			continue
		}

		e := s.newEntry()
		if err := s.store.Save(ctx, id, e.board.Snapshot()); err != nil {
			return "", fmt.Errorf("save board %s: %w", id, err)
		}

		s.mu.Lock()
		s.boards[id] = e
		s.mu.Unlock()

		s.log.Info("board created", "boardId", id)
		return id, nil
	}
}

// IDs lists the boards known to the snapshot store.
func (s *Service) IDs(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

// Delete drops a board, its snapshot and its subscribers.
func (s *Service) Delete(ctx context.Context, id string) error {
	e, err := s.getOrLoad(ctx, id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return ErrBoardNotFound
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete board %s: %w", id, err)
	}
	e.deleted = true
	for key, ch := range e.subs {
		close(ch)
		delete(e.subs, key)
	}

	s.mu.Lock()
	delete(s.boards, id)
	s.deletes++
	s.mu.Unlock()

	s.log.Info("board deleted", "boardId", id)
	return nil
}

func (s *Service) StartNewMatch(ctx context.Context, id, home, away string) error {
	return s.mutate(ctx, id, func(b *scoreboard.Board) error {
		return b.StartNewMatch(home, away)
	})
}

func (s *Service) FinishMatch(ctx context.Context, id, home, away string) error {
	return s.mutate(ctx, id, func(b *scoreboard.Board) error {
		return b.FinishMatch(home, away)
	})
}

func (s *Service) UpdateScore(ctx context.Context, id, home, away string, homeScore, awayScore int) error {
	return s.mutate(ctx, id, func(b *scoreboard.Board) error {
		return b.UpdateScore(home, away, homeScore, awayScore)
	})
}

func (s *Service) Summary(ctx context.Context, id string) ([]scoreboard.Match, error) {
	var out []scoreboard.Match
	err := s.read(ctx, id, func(b *scoreboard.Board) error {
		out = b.Summary()
		return nil
	})
	return out, err
}

func (s *Service) ScoreForTeam(ctx context.Context, id, team string) (int, error) {
	var score int
	err := s.read(ctx, id, func(b *scoreboard.Board) error {
		var err error
		score, err = b.ScoreForTeam(team)
		return err
	})
	return score, err
}

// Subscribe returns a channel that receives the current summary at once and a
// fresh one after every change. A subscriber that falls behind only sees the
// latest summary. The channel is closed by cancel or when the board is
// deleted.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []scoreboard.Match, func(), error) {
	e, err := s.getOrLoad(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, nil, ErrBoardNotFound
	}

	ch := make(chan []scoreboard.Match, subscriberBuffer)
	key := e.nextSub
	e.nextSub++
	e.subs[key] = ch
	ch <- e.board.Summary()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if c, ok := e.subs[key]; ok {
				close(c)
				delete(e.subs, key)
			}
		})
	}
	return ch, cancel, nil
}

func (s *Service) mutate(ctx context.Context, id string, fn func(*scoreboard.Board) error) error {
	e, err := s.getOrLoad(ctx, id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return ErrBoardNotFound
	}
	prev := e.board.Snapshot()
	if err := fn(e.board); err != nil {
		return err
	}

	// a change that cannot be saved is rolled back
	if err := s.store.Save(ctx, id, e.board.Snapshot()); err != nil {
		s.log.Error("board snapshot save failed", "boardId", id, "err", err)
		if rerr := e.board.Restore(prev); rerr != nil {
			s.log.Error("board rollback failed", "boardId", id, "err", rerr)
		}
		return fmt.Errorf("save board %s: %w", id, err)
	}

	e.publishLocked(e.board.Summary())
	return nil
}

func (s *Service) read(ctx context.Context, id string, fn func(*scoreboard.Board) error) error {
	e, err := s.getOrLoad(ctx, id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return ErrBoardNotFound
	}
	return fn(e.board)
}

func (s *Service) getOrLoad(ctx context.Context, id string) (*entry, error) {
	for {
		s.mu.Lock()
		e, ok := s.boards[id]
		deletes := s.deletes
		s.mu.Unlock()
		if ok {
			return e, nil
		}

		snap, found, err := s.store.Load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load board %s: %w", id, err)
		}
		if !found {
			return nil, ErrBoardNotFound
		}

		e = s.newEntry()
		if err := e.board.Restore(snap); err != nil {
			return nil, fmt.Errorf("restore board %s: %w", id, err)
		}

		s.mu.Lock()
		// another caller may have restored it meanwhile
		if cached, ok := s.boards[id]; ok {
			s.mu.Unlock()
			return cached, nil
		}
		if s.deletes != deletes {
			// the snapshot may belong to a board deleted since the load
			s.mu.Unlock()
			continue
		}
		s.boards[id] = e
		s.mu.Unlock()

		s.log.Info("board restored", "boardId", id, "matches", e.board.Len())
		return e, nil
	}
}

func (s *Service) newEntry() *entry {
	return &entry{
		board: scoreboard.New(scoreboard.WithLogger(s.log)),
		subs:  make(map[int]chan []scoreboard.Match),
	}
}

func (e *entry) publishLocked(summary []scoreboard.Match) {
	for _, ch := range e.subs {
		summary := slices.Clone(summary)
		select {
		case ch <- summary:
			continue
		default:
		}
		// full: drop the oldest pending summary and retry once
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- summary:
		default:
		}
	}
}

func randID(n int) (string, error) {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	// bytes at or above limit are rejected so every symbol is equally likely
	const limit = 256 - 256%len(alphabet)

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, c := range buf {
			if int(c) >= limit {
				continue
			}
			out = append(out, alphabet[int(c)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
