package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"example.com/scoreboard/internal/boards"
	"example.com/scoreboard/pkg/scoreboard"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, ErrorResponse{Code: errCode, Message: msg})
}

// writeBoardError maps board and scoreboard errors to HTTP responses.
// Anything it does not recognise is logged and reported as internal.
func writeBoardError(w http.ResponseWriter, log *slog.Logger, err error) {
	if errors.Is(err, boards.ErrBoardNotFound) {
		writeError(w, http.StatusNotFound, "board_not_found", "board not found")
		return
	}
	switch code := scoreboard.CodeOf(err); code {
	case scoreboard.CodeInvalidArgument:
		writeError(w, http.StatusBadRequest, string(code), err.Error())
	case scoreboard.CodeConflict:
		writeError(w, http.StatusConflict, string(code), err.Error())
	case scoreboard.CodeNotFound:
		writeError(w, http.StatusNotFound, string(code), err.Error())
	default:
		log.Error("board operation failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
