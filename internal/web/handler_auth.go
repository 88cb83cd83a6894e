package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vbonduro/phototasks/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid login request")
		return
	}

	session, err := s.sessions.Login(req.Email, req.Password)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrEmptyFields) || errors.Is(err, auth.ErrInvalidEmail) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	s.logger.Info("user signed in", "email", session.Email)
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(bearerToken(r))
	w.WriteHeader(http.StatusNoContent)
}
