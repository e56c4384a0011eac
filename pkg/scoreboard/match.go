package scoreboard

import "strconv"

// Match is a snapshot of one in-progress match. Values handed out by Board
// are copies; changing them has no effect on the board.
type Match struct {
	ID        string
	HomeTeam  string
	AwayTeam  string
	HomeScore int
	AwayScore int

	seq uint64
}

// Total is the combined score used for ranking.
func (m Match) Total() int {
	return m.HomeScore + m.AwayScore
}

// Seq is the start-order marker. A later start always has a larger Seq.
func (m Match) Seq() uint64 {
	return m.seq
}

// String formats the match as "<home> <homeScore> - <away> <awayScore>".
func (m Match) String() string {
	return m.HomeTeam + " " + strconv.Itoa(m.HomeScore) + " - " + m.AwayTeam + " " + strconv.Itoa(m.AwayScore)
}

func (m Match) withScore(home, away int) Match {
	m.HomeScore = home
	m.AwayScore = away
	return m
}
