package boards

import "example.com/scoreboard/pkg/scoreboard"

// MatchView is the JSON shape of a match sent to clients.
type MatchView struct {
	ID        string `json:"id"`
	Home      string `json:"home"`
	Away      string `json:"away"`
	HomeScore int    `json:"homeScore"`
	AwayScore int    `json:"awayScore"`
	Display   string `json:"display"`
}

// SummaryView is a ranked summary as sent to clients.
type SummaryView struct {
	BoardID string      `json:"boardId"`
	Matches []MatchView `json:"matches"`
}

func NewSummaryView(boardID string, summary []scoreboard.Match) SummaryView {
	views := make([]MatchView, 0, len(summary))
	for _, m := range summary {
		views = append(views, MatchView{
			ID:        m.ID,
			Home:      m.HomeTeam,
			Away:      m.AwayTeam,
			HomeScore: m.HomeScore,
			AwayScore: m.AwayScore,
			Display:   m.String(),
		})
	}
	return SummaryView{BoardID: boardID, Matches: views}
}
