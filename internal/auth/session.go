// Package auth holds the signed-in host. There is no real identity provider.
package auth

import (
	"errors"
	"net/mail"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const DefaultHostName = "Wedding Host"

var ErrInvalidEmail = errors.New("invalid email address")

// User is the signed-in host
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session tracks the current host user
type Session struct {
	mu   sync.RWMutex
	user *User
	log  zerolog.Logger
}

// NewSession creates a new signed-out session
func NewSession(logger zerolog.Logger) *Session {
	return &Session{log: logger.With().Str("component", "Auth").Logger()}
}

// Login signs the host in with email
func (s *Session) Login(email string) (User, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return User{}, ErrInvalidEmail
	}

	u := User{Name: DefaultHostName, Email: email}
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()

	s.log.Info().Str("email", email).Msg("Host logged in")
	return u, nil
}

// Logout signs the host out
func (s *Session) Logout() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	s.log.Info().Msg("Host logged out")
}

// CurrentUser returns the signed-in host, if any
func (s *Session) CurrentUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}
