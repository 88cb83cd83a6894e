// Package auth implements the login check and the session table that maps
// tokens to the signed-in user's email. It is a stub: one fixed password is
// accepted for every email.
package auth

import (
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Password is the only accepted password.
const Password = "1234"

var (
	ErrEmptyFields   = errors.New("email and password are required")
	ErrInvalidEmail  = errors.New("email address is not valid")
	ErrWrongPassword = errors.New("incorrect password")
	ErrNoSession     = errors.New("not signed in")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email looks like local-part@domain.tld.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Check validates a login attempt and returns the normalized email.
func Check(email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", ErrEmptyFields
	}
	if !ValidEmail(email) {
		return "", ErrInvalidEmail
	}
	if password != Password {
		return "", ErrWrongPassword
	}
	return email, nil
}

type Session struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// Sessions holds signed-in users. Sessions never expire; they end on Logout
// or process exit.
type Sessions struct {
	mu      sync.RWMutex
	byToken map[string]string
}

func NewSessions() *Sessions {
	return &Sessions{byToken: make(map[string]string)}
}

// Login checks the credentials and opens a session.
func (s *Sessions) Login(email, password string) (Session, error) {
	email, err := Check(email, password)
	if err != nil {
		return Session{}, err
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.byToken[token] = email
	s.mu.Unlock()

	return Session{Token: token, Email: email}, nil
}

func (s *Sessions) Lookup(token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email, ok := s.byToken[token]
	if !ok {
		return "", ErrNoSession
	}
	return email, nil
}

func (s *Sessions) Logout(token string) {
	s.mu.Lock()
	delete(s.byToken, token)
	s.mu.Unlock()
}
