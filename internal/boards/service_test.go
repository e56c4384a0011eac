package boards

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/scoreboard/internal/persist"
	"example.com/scoreboard/pkg/scoreboard"
)

type failingStore struct {
	*persist.MemoryStore
	failSave bool
}

func (s *failingStore) Save(ctx context.Context, boardID string, snap scoreboard.Snapshot) error {
	if s.failSave {
		return errors.New("store unavailable")
	}
	return s.MemoryStore.Save(ctx, boardID, snap)
}

func rendered(ms []scoreboard.Match) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.String())
	}
	return out
}

func TestService_Scenarios(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		run  func(t *testing.T, svc *Service, id string)
	}{
		{
			name: "start, update and rank",
			run: func(t *testing.T, svc *Service, id string) {
				require.NoError(t, svc.StartNewMatch(ctx, id, "Home", "Away"))
				require.NoError(t, svc.StartNewMatch(ctx, id, "Home1", "Away1"))
				require.NoError(t, svc.UpdateScore(ctx, id, "Home1", "Away1", 2, 0))

				summary, err := svc.Summary(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, []string{"Home1 2 - Away1 0", "Home 0 - Away 0"}, rendered(summary))

				score, err := svc.ScoreForTeam(ctx, id, "away1")
				require.NoError(t, err)
				assert.Equal(t, 0, score)
			},
		},
		{
			name: "domain errors pass through unchanged",
			run: func(t *testing.T, svc *Service, id string) {
				require.NoError(t, svc.StartNewMatch(ctx, id, "Home", "Away"))

				err := svc.StartNewMatch(ctx, id, "HOME", "Other")
				assert.ErrorIs(t, err, scoreboard.ErrConflict)
				assert.EqualError(t, err, "team already on board: HOME")

				err = svc.FinishMatch(ctx, id, "Nope", "Nada")
				assert.ErrorIs(t, err, scoreboard.ErrNotFound)

				err = svc.UpdateScore(ctx, id, "Home", "Away", -1, 0)
				assert.ErrorIs(t, err, scoreboard.ErrInvalidArgument)

				_, err = svc.ScoreForTeam(ctx, id, "Nobody")
				assert.ErrorIs(t, err, scoreboard.ErrNotFound)
			},
		},
		{
			name: "finish removes the match",
			run: func(t *testing.T, svc *Service, id string) {
				require.NoError(t, svc.StartNewMatch(ctx, id, "Home", "Away"))
				require.NoError(t, svc.FinishMatch(ctx, id, "Home", "Away"))

				summary, err := svc.Summary(ctx, id)
				require.NoError(t, err)
				assert.Empty(t, summary)
			},
		},
		{
			name: "unknown board",
			run: func(t *testing.T, svc *Service, _ string) {
				assert.ErrorIs(t, svc.StartNewMatch(ctx, "missing", "A", "B"), ErrBoardNotFound)
				assert.ErrorIs(t, svc.FinishMatch(ctx, "missing", "A", "B"), ErrBoardNotFound)
				assert.ErrorIs(t, svc.UpdateScore(ctx, "missing", "A", "B", 1, 1), ErrBoardNotFound)
				_, err := svc.Summary(ctx, "missing")
				assert.ErrorIs(t, err, ErrBoardNotFound)
				_, err = svc.ScoreForTeam(ctx, "missing", "A")
				assert.ErrorIs(t, err, ErrBoardNotFound)
				assert.ErrorIs(t, svc.Delete(ctx, "missing"), ErrBoardNotFound)
			},
		},
		{
			name: "boards are independent",
			run: func(t *testing.T, svc *Service, id string) {
				other, err := svc.Create(ctx)
				require.NoError(t, err)
				require.NotEqual(t, id, other)

				require.NoError(t, svc.StartNewMatch(ctx, id, "Home", "Away"))
				require.NoError(t, svc.StartNewMatch(ctx, other, "Home", "Away"))
				require.NoError(t, svc.UpdateScore(ctx, other, "Home", "Away", 1, 0))

				s1, err := svc.Summary(ctx, id)
				require.NoError(t, err)
				s2, err := svc.Summary(ctx, other)
				require.NoError(t, err)
				assert.Equal(t, []string{"Home 0 - Away 0"}, rendered(s1))
				assert.Equal(t, []string{"Home 1 - Away 0"}, rendered(s2))

				ids, err := svc.IDs(ctx)
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{id, other}, ids)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(persist.NewMemoryStore(), nil)
			id, err := svc.Create(ctx)
			require.NoError(t, err)
			require.Len(t, id, 10)
			tc.run(t, svc, id)
		})
	}
}

func TestService_RestoreAfterRestart(t *testing.T) {
	ctx := context.Background()
	store := persist.NewMemoryStore()

	svc1 := NewService(store, nil)
	id, err := svc1.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, svc1.StartNewMatch(ctx, id, "Home", "Away"))
	require.NoError(t, svc1.StartNewMatch(ctx, id, "Home1", "Away1"))
	require.NoError(t, svc1.UpdateScore(ctx, id, "Home", "Away", 1, 1))

	// simulate a restart: new service with an empty cache
	svc2 := NewService(store, nil)
	summary, err := svc2.Summary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Home 1 - Away 1", "Home1 0 - Away1 0"}, rendered(summary))

	// start order survives the restart
	require.NoError(t, svc2.StartNewMatch(ctx, id, "Home2", "Away2"))
	summary, err = svc2.Summary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Home 1 - Away 1", "Home2 0 - Away2 0", "Home1 0 - Away1 0"}, rendered(summary))
}

func TestService_SaveFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: persist.NewMemoryStore()}
	svc := NewService(store, nil)
	id, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.StartNewMatch(ctx, id, "Home", "Away"))

	ch, cancel, err := svc.Subscribe(ctx, id)
	require.NoError(t, err)
	defer cancel()
	<-ch

	store.failSave = true
	err = svc.StartNewMatch(ctx, id, "Home1", "Away1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")
	assert.False(t, scoreboard.BlameCaller(err))
	require.Error(t, svc.UpdateScore(ctx, id, "Home", "Away", 3, 0))
	require.Error(t, svc.FinishMatch(ctx, id, "Home", "Away"))

	// nothing changed and nothing was published
	summary, err := svc.Summary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Home 0 - Away 0"}, rendered(summary))
	select {
	case got := <-ch:
		t.Fatalf("unexpected summary %v", rendered(got))
	default:
	}

	// the same calls succeed once the store is back
	store.failSave = false
	require.NoError(t, svc.StartNewMatch(ctx, id, "Home1", "Away1"))
	require.NoError(t, svc.UpdateScore(ctx, id, "Home", "Away", 1, 0))

	summary, err = svc.Summary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Home 1 - Away 0", "Home1 0 - Away1 0"}, rendered(summary))

	snap, found, err := store.Load(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, snap.Matches, 2)
}

// pausingStore holds the first Load open, after reading, until release is
// closed.
type pausingStore struct {
	*persist.MemoryStore
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (s *pausingStore) Load(ctx context.Context, boardID string) (scoreboard.Snapshot, bool, error) {
	snap, found, err := s.MemoryStore.Load(ctx, boardID)
	if s.calls.Add(1) == 1 {
		close(s.entered)
		<-s.release
	}
	return snap, found, err
}

func TestService_DeleteDuringRestore(t *testing.T) {
	ctx := context.Background()
	store := &pausingStore{
		MemoryStore: persist.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	id, err := NewService(store.MemoryStore, nil).Create(ctx)
	require.NoError(t, err)

	// fresh cache, so the next call restores from the store
	svc := NewService(store, nil)

	errc := make(chan error, 1)
	go func() { errc <- svc.StartNewMatch(ctx, id, "Home", "Away") }()

	<-store.entered
	require.NoError(t, svc.Delete(ctx, id))
	close(store.release)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrBoardNotFound)
	case <-time.After(2 * time.Second):
		t.Fatal("start did not return")
	}

	_, found, err := store.MemoryStore.Load(ctx, id)
	require.NoError(t, err)
	assert.False(t, found, "deleted board was saved again")
	_, err = svc.Summary(ctx, id)
	assert.ErrorIs(t, err, ErrBoardNotFound)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	store := persist.NewMemoryStore()
	svc := NewService(store, nil)
	id, err := svc.Create(ctx)
	require.NoError(t, err)

	ch, cancel, err := svc.Subscribe(ctx, id)
	require.NoError(t, err)
	defer cancel()
	<-ch

	require.NoError(t, svc.Delete(ctx, id))

	_, open := <-ch
	assert.False(t, open)
	_, found, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)
	assert.ErrorIs(t, svc.StartNewMatch(ctx, id, "A", "B"), ErrBoardNotFound)
}

func TestService_Subscribe(t *testing.T) {
	ctx := context.Background()
	svc := NewService(persist.NewMemoryStore(), nil)
	id, err := svc.Create(ctx)
	require.NoError(t, err)

	ch, cancel, err := svc.Subscribe(ctx, id)
	require.NoError(t, err)

	initial := <-ch
	assert.Empty(t, initial)

	require.NoError(t, svc.StartNewMatch(ctx, id, "Home", "Away"))
	select {
	case got := <-ch:
		assert.Equal(t, []string{"Home 0 - Away 0"}, rendered(got))
	case <-time.After(time.Second):
		t.Fatal("no summary after start")
	}

	// failed operations publish nothing
	require.Error(t, svc.StartNewMatch(ctx, id, "Home", "X"))
	select {
	case got := <-ch:
		t.Fatalf("unexpected summary %v", got)
	default:
	}

	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel()
}

func TestService_Subscribe_SlowSubscriberSeesLatest(t *testing.T) {
	ctx := context.Background()
	svc := NewService(persist.NewMemoryStore(), nil)
	id, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.StartNewMatch(ctx, id, "Home", "Away"))

	ch, cancel, err := svc.Subscribe(ctx, id)
	require.NoError(t, err)
	defer cancel()

	for i := 1; i <= 3*subscriberBuffer; i++ {
		require.NoError(t, svc.UpdateScore(ctx, id, "Home", "Away", i, 0))
	}

	var last []scoreboard.Match
	for len(ch) > 0 {
		last = <-ch
	}
	require.Len(t, last, 1)
	assert.Equal(t, 3*subscriberBuffer, last[0].HomeScore)
}

func TestService_ConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	svc := NewService(persist.NewMemoryStore(), nil)
	id, err := svc.Create(ctx)
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			home, away := fmt.Sprintf("H%d", w), fmt.Sprintf("A%d", w)
			if err := svc.StartNewMatch(ctx, id, home, away); err != nil {
				t.Errorf("start %d: %v", w, err)
				return
			}
			for i := 1; i <= 10; i++ {
				if err := svc.UpdateScore(ctx, id, home, away, i, w); err != nil {
					t.Errorf("update %d: %v", w, err)
					return
				}
				if _, err := svc.Summary(ctx, id); err != nil {
					t.Errorf("summary %d: %v", w, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	summary, err := svc.Summary(ctx, id)
	require.NoError(t, err)
	require.Len(t, summary, workers)
	for _, m := range summary {
		assert.Equal(t, 10, m.HomeScore)
	}
	// highest away score (worker 15) ranks first
	assert.Equal(t, "H15 10 - A15 15", summary[0].String())
}

func TestRandID(t *testing.T) {
	seen := make(map[rune]bool)
	for i := 0; i < 200; i++ {
		id, err := randID(10)
		require.NoError(t, err)
		require.Len(t, id, 10)
		for _, c := range id {
			assert.True(t, (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9'), "unexpected char %q in %q", c, id)
			seen[c] = true
		}
	}
	// 2000 draws over 36 symbols reach every one of them
	assert.Len(t, seen, 36)
}
