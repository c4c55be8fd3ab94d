package store

import (
	"errors"

	"github.com/calvinwijaya/blackjack-3d/internal/game"
)

// ErrSessionNotFound is returned when no session has the requested ID
var ErrSessionNotFound = errors.New("session not found")

// Store defines the interface for session storage
type Store interface {
	// SaveSession saves a session to the store
	SaveSession(s *game.Session) error

	// GetSession retrieves a session by ID
	GetSession(id string) (*game.Session, error)

	// DeleteSession removes a session from the store
	DeleteSession(id string) error

	// GetAllSessions returns all sessions in the store
	GetAllSessions() ([]*game.Session, error)
}
