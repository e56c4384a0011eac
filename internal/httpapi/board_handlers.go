package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"example.com/scoreboard/internal/boards"
	"example.com/scoreboard/pkg/scoreboard"
)

const maxBodyBytes = 1 << 20

// Boards is the part of boards.Service the HTTP surface needs.
type Boards interface {
	Create(ctx context.Context) (string, error)
	IDs(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
	StartNewMatch(ctx context.Context, id, home, away string) error
	FinishMatch(ctx context.Context, id, home, away string) error
	UpdateScore(ctx context.Context, id, home, away string, homeScore, awayScore int) error
	Summary(ctx context.Context, id string) ([]scoreboard.Match, error)
	ScoreForTeam(ctx context.Context, id, team string) (int, error)
}

type BoardHandler struct {
	Boards Boards
	Log    *slog.Logger
}

type StartMatchRequest struct {
	Home string `json:"home"`
	Away string `json:"away"`
}

type UpdateScoreRequest struct {
	Home      string `json:"home"`
	Away      string `json:"away"`
	HomeScore *int   `json:"homeScore"`
	AwayScore *int   `json:"awayScore"`
}

type TeamScoreResponse struct {
	Team  string `json:"team"`
	Score int    `json:"score"`
}

// RegisterRoutes mounts the board API. Mutations go through requireAuth.
func (h *BoardHandler) RegisterRoutes(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	protect := func(fn http.HandlerFunc) http.Handler {
		return requireAuth(fn)
	}

	mux.HandleFunc("GET /api/boards", h.List)
	mux.Handle("POST /api/boards", protect(h.Create))
	mux.Handle("DELETE /api/boards/{id}", protect(h.Delete))
	mux.Handle("POST /api/boards/{id}/matches", protect(h.StartMatch))
	mux.Handle("PUT /api/boards/{id}/matches/score", protect(h.UpdateScore))
	mux.Handle("DELETE /api/boards/{id}/matches", protect(h.FinishMatch))
	mux.HandleFunc("GET /api/boards/{id}/summary", h.Summary)
	mux.HandleFunc("GET /api/boards/{id}/teams/{team}/score", h.TeamScore)
}

func (h *BoardHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Boards.IDs(r.Context())
	if err != nil {
		writeBoardError(w, h.Log, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"boards": ids})
}

func (h *BoardHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := h.Boards.Create(r.Context())
	if err != nil {
		writeBoardError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"boardId": id})
}

func (h *BoardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Boards.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeBoardError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BoardHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	var req StartMatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Boards.StartNewMatch(r.Context(), r.PathValue("id"), req.Home, req.Away); err != nil {
		writeBoardError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *BoardHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	var req UpdateScoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.HomeScore == nil || req.AwayScore == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "homeScore and awayScore are required")
		return
	}
	err := h.Boards.UpdateScore(r.Context(), r.PathValue("id"), req.Home, req.Away, *req.HomeScore, *req.AwayScore)
	if err != nil {
		writeBoardError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BoardHandler) FinishMatch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := h.Boards.FinishMatch(r.Context(), r.PathValue("id"), q.Get("home"), q.Get("away")); err != nil {
		writeBoardError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BoardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	summary, err := h.Boards.Summary(r.Context(), id)
	if err != nil {
		writeBoardError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, boards.NewSummaryView(id, summary))
}

func (h *BoardHandler) TeamScore(w http.ResponseWriter, r *http.Request) {
	team := r.PathValue("team")
	score, err := h.Boards.ScoreForTeam(r.Context(), r.PathValue("id"), team)
	if err != nil {
		writeBoardError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, TeamScoreResponse{Team: team, Score: score})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return false
	}
	return true
}
