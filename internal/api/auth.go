package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"dirsage/internal/auth"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse contains JWT token
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserInfo  `json:"user"`
}

// UserInfo contains user details
type UserInfo struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// Login handles POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.tokens == nil {
		respondError(w, "authentication is disabled", http.StatusNotFound)
		return
	}
	if !requireJSON(w, r) {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !h.validCredentials(req.Username, req.Password) {
		h.logger.Warn("Login rejected", "username", req.Username, "remote", r.RemoteAddr)
		respondError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	roles := []string{auth.RoleAdmin}
	token, err := h.tokens.GenerateToken(req.Username, req.Username, roles)
	if err != nil {
		h.logger.Error("Token generation failed", "error", err)
		respondError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	respondJSON(w, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.tokens.Expiry()),
		User: UserInfo{
			Username: req.Username,
			Roles:    roles,
		},
	}, http.StatusOK)
}

func (h *Handler) validCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.credentials.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(h.credentials.Password)) == 1
	return userOK && passOK && h.credentials.Password != ""
}

// Health handles GET and HEAD /api/v1/health
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	respondJSON(w, map[string]string{"status": "healthy"}, http.StatusOK)
}
