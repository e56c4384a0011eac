// Package live pushes board summaries to WebSocket clients as they change.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"example.com/scoreboard/internal/boards"
	"example.com/scoreboard/pkg/scoreboard"
)

const (
	writeWait           = 10 * time.Second
	defaultPingInterval = 25 * time.Second
	maxBoardIDLen       = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // read-only feed
}

// Envelope WS envelope: {"type":"...","payload":{...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Subscriber is implemented by boards.Service.
type Subscriber interface {
	Subscribe(ctx context.Context, id string) (<-chan []scoreboard.Match, func(), error)
}

type Server struct {
	boards       Subscriber
	log          *slog.Logger
	pingInterval time.Duration
}

func NewServer(b Subscriber, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{boards: b, log: log, pingInterval: defaultPingInterval}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/", s.handleWS)
}

// handleWS streams the summary of one board: /ws/{boardId}
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	boardID, ok := boardIDFromWSPath(r.URL.Path)
	if !ok {
		http.Error(w, "invalid board id", http.StatusBadRequest)
		return
	}

	updates, cancel, err := s.boards.Subscribe(r.Context(), boardID)
	if errors.Is(err, boards.ErrBoardNotFound) {
		http.Error(w, "board not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("subscribe to board", "boardId", boardID, "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	defer cancel()

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	s.log.Debug("live client connected", "boardId", boardID, "remote", r.RemoteAddr)

	// reader loop: the feed is one-way, reading only notices the disconnect
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case summary, ok := <-updates:
			if !ok {
				_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
				_ = ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "board deleted"))
				return
			}
			env, err := newEnvelope("summary", boards.NewSummaryView(boardID, summary))
			if err != nil {
				s.log.Error("encode summary", "boardId", boardID, "err", err)
				continue
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			s.log.Debug("live client disconnected", "boardId", boardID)
			return
		}
	}
}

func boardIDFromWSPath(path string) (string, bool) {
	id, ok := strings.CutPrefix(path, "/ws/")
	if !ok || id == "" || len(id) > maxBoardIDLen {
		return "", false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return "", false
		}
	}
	return id, true
}

func newEnvelope(typ string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: typ, Payload: b}, nil
}
