package scoreboard

import (
	"cmp"
	"slices"
	"strings"
)

// MatchState is the serialisable form of a Match.
type MatchState struct {
	ID        string `json:"id"`
	HomeTeam  string `json:"homeTeam"`
	AwayTeam  string `json:"awayTeam"`
	HomeScore int    `json:"homeScore"`
	AwayScore int    `json:"awayScore"`
	Seq       uint64 `json:"seq"`
}

// Snapshot is the serialisable state of a Board. It is what persistence
// layers store; the board itself never persists anything.
type Snapshot struct {
	Matches []MatchState `json:"matches"`
	LastSeq uint64       `json:"lastSeq"`
}

// Snapshot copies the board contents, ordered by start.
func (b *Board) Snapshot() Snapshot {
	snap := Snapshot{
		Matches: make([]MatchState, 0, len(b.matches)),
		LastSeq: b.lastSeq,
	}
	for _, m := range b.matches {
		snap.Matches = append(snap.Matches, MatchState{
			ID:        m.ID,
			HomeTeam:  m.HomeTeam,
			AwayTeam:  m.AwayTeam,
			HomeScore: m.HomeScore,
			AwayScore: m.AwayScore,
			Seq:       m.seq,
		})
	}
	slices.SortFunc(snap.Matches, func(x, y MatchState) int {
		return cmp.Compare(x.Seq, y.Seq)
	})
	return snap
}

// Restore replaces the board contents with snap. The snapshot must satisfy
// the same rules StartNewMatch and UpdateScore enforce, and every match must
// carry a distinct non-zero Seq. On error the board is left as it was.
func (b *Board) Restore(snap Snapshot) error {
	matches := make(map[pairKey]Match, len(snap.Matches))
	teams := make(map[string]pairKey, 2*len(snap.Matches))
	seqs := make(map[uint64]struct{}, len(snap.Matches))
	lastSeq := snap.LastSeq

	for _, st := range snap.Matches {
		if err := validateNames(st.HomeTeam, st.AwayTeam); err != nil {
			return err
		}
		if st.HomeScore < 0 || st.AwayScore < 0 {
			return newError(CodeInvalidArgument, "negative score")
		}
		if st.Seq == 0 {
			return newError(CodeInvalidArgument, "missing sequence for "+st.HomeTeam+" and "+st.AwayTeam)
		}
		if _, dup := seqs[st.Seq]; dup {
			return newError(CodeInvalidArgument, "duplicate sequence for "+st.HomeTeam+" and "+st.AwayTeam)
		}
		seqs[st.Seq] = struct{}{}

		h, a := b.fold.String(st.HomeTeam), b.fold.String(st.AwayTeam)
		if h == a {
			return newError(CodeInvalidArgument, "same team name")
		}
		if _, ok := teams[h]; ok {
			return newError(CodeConflict, "team already on board: "+st.HomeTeam)
		}
		if _, ok := teams[a]; ok {
			return newError(CodeConflict, "team already on board: "+st.AwayTeam)
		}

		id := st.ID
		if strings.TrimSpace(id) == "" {
			id = b.newID()
		}
		key := pairKey{home: h, away: a}
		matches[key] = Match{
			ID:        id,
			HomeTeam:  st.HomeTeam,
			AwayTeam:  st.AwayTeam,
			HomeScore: st.HomeScore,
			AwayScore: st.AwayScore,
			seq:       st.Seq,
		}
		teams[h] = key
		teams[a] = key
		lastSeq = max(lastSeq, st.Seq)
	}

	b.matches = matches
	b.teams = teams
	b.lastSeq = lastSeq

	b.log.Debug("board restored", "matches", len(matches), "lastSeq", lastSeq)
	return nil
}
