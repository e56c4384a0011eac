package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"example.com/scoreboard/internal/auth"
)

// Signer issues operator tokens. *auth.Service implements it.
type Signer interface {
	Sign(subject string, ttl time.Duration) (string, error)
}

type AuthHandler struct {
	Auth         Signer
	OperatorName string
	OperatorHash string
	TokenTTL     time.Duration
	Log          *slog.Logger
}

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	if req.Name == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "name and password are required")
		return
	}

	if req.Name != h.OperatorName || auth.CheckPassword(h.OperatorHash, req.Password) != nil {
		h.Log.Warn("operator login rejected", "name", req.Name)
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid name or password")
		return
	}

	token, err := h.Auth.Sign(req.Name, h.TokenTTL)
	if err != nil {
		h.Log.Error("sign token", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{AccessToken: token})
}
