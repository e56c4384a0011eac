// Package scoreboard keeps the in-progress matches of one board and ranks
// them for display.
//
// A Board is not safe for concurrent use. Callers that share one between
// goroutines must guard every method with a single lock.
package scoreboard

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

type pairKey struct {
	home string
	away string
}

// Board holds the matches currently in progress.
//
// Team names are compared case-insensitively everywhere: when checking that a
// team is not already playing, and when looking a match up to finish it,
// update it or read a team's score.
type Board struct {
	log   *slog.Logger
	fold  cases.Caser
	newID func() string

	matches map[pairKey]Match
	teams   map[string]pairKey // folded team name -> match it plays in
	lastSeq uint64
}

type Option func(*Board)

// WithLogger sets the logger used for debug records of board mutations.
func WithLogger(log *slog.Logger) Option {
	return func(b *Board) {
		if log != nil {
			b.log = log
		}
	}
}

// WithIDGenerator replaces the uuid based match id generator.
func WithIDGenerator(fn func() string) Option {
	return func(b *Board) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// New returns an empty board.
func New(opts ...Option) *Board {
	b := &Board{
		log:     slog.Default(),
		fold:    cases.Fold(),
		newID:   uuid.NewString,
		matches: make(map[pairKey]Match),
		teams:   make(map[string]pairKey),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// StartNewMatch puts a new 0-0 match between home and away on the board.
//
// It fails with ErrInvalidArgument for blank or equal names and with
// ErrConflict when either team already plays in another match. The home team
// is checked before the away team.
func (b *Board) StartNewMatch(home, away string) error {
	if err := validateNames(home, away); err != nil {
		return err
	}
	h, a := b.fold.String(home), b.fold.String(away)
	if h == a {
		return newError(CodeInvalidArgument, "same team name")
	}
	if _, ok := b.teams[h]; ok {
		return newError(CodeConflict, "team already on board: "+home)
	}
	if _, ok := b.teams[a]; ok {
		return newError(CodeConflict, "team already on board: "+away)
	}

	b.lastSeq++
	m := Match{
		ID:       b.newID(),
		HomeTeam: home,
		AwayTeam: away,
		seq:      b.lastSeq,
	}
	b.put(pairKey{home: h, away: a}, m)

	b.log.Debug("match started", "matchId", m.ID, "home", home, "away", away, "seq", m.seq)
	return nil
}

// FinishMatch removes the match between home and away for good.
func (b *Board) FinishMatch(home, away string) error {
	if err := validateNames(home, away); err != nil {
		return err
	}
	key, m, err := b.find(home, away)
	if err != nil {
		return err
	}

	delete(b.matches, key)
	delete(b.teams, key.home)
	delete(b.teams, key.away)

	b.log.Debug("match finished", "matchId", m.ID, "result", m.String())
	return nil
}

// UpdateScore replaces both scores of the match between home and away. The
// match keeps its id, its stored team names and its place in the start order.
func (b *Board) UpdateScore(home, away string, homeScore, awayScore int) error {
	if err := validateNames(home, away); err != nil {
		return err
	}
	if homeScore < 0 || awayScore < 0 {
		return newError(CodeInvalidArgument, "negative score")
	}
	key, m, err := b.find(home, away)
	if err != nil {
		return err
	}

	updated := m.withScore(homeScore, awayScore)
	b.matches[key] = updated

	b.log.Debug("score updated", "matchId", m.ID, "from", m.String(), "to", updated.String())
	return nil
}

// Summary returns every match on the board, highest total score first. Ties
// go to the match that started most recently.
func (b *Board) Summary() []Match {
	out := make([]Match, 0, len(b.matches))
	for _, m := range b.matches {
		out = append(out, m)
	}
	slices.SortFunc(out, func(x, y Match) int {
		if c := cmp.Compare(y.Total(), x.Total()); c != 0 {
			return c
		}
		return cmp.Compare(y.seq, x.seq)
	})
	return out
}

// ScoreForTeam returns the current score of the named team, whichever side it
// plays on.
func (b *Board) ScoreForTeam(name string) (int, error) {
	f := b.fold.String(name)
	key, ok := b.teams[f]
	if !ok {
		return 0, newError(CodeNotFound, "no match for "+name+" team")
	}
	m := b.matches[key]
	if key.home == f {
		return m.HomeScore, nil
	}
	return m.AwayScore, nil
}

// Match returns the match between home and away, if there is one.
func (b *Board) Match(home, away string) (Match, bool) {
	m, ok := b.matches[pairKey{home: b.fold.String(home), away: b.fold.String(away)}]
	return m, ok
}

// Len returns the number of matches in progress.
func (b *Board) Len() int {
	return len(b.matches)
}

func (b *Board) find(home, away string) (pairKey, Match, error) {
	key := pairKey{home: b.fold.String(home), away: b.fold.String(away)}
	m, ok := b.matches[key]
	if !ok {
		return pairKey{}, Match{}, newError(CodeNotFound, "no match for "+home+" and "+away)
	}
	return key, m, nil
}

func (b *Board) put(key pairKey, m Match) {
	b.matches[key] = m
	b.teams[key.home] = key
	b.teams[key.away] = key
}

func validateNames(home, away string) error {
	if strings.TrimSpace(home) == "" || strings.TrimSpace(away) == "" {
		return newError(CodeInvalidArgument, "team name empty")
	}
	return nil
}
