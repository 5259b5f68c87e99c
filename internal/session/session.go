package session

import (
	"errors"
	"sync"
)

var ErrNoSession = errors.New("no session")

// Session holds the credentials issued by the token endpoint.
type Session struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (s Session) Valid() bool {
	return s.Access != ""
}

// Store persists the current session between runs.
type Store interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// MemoryStore keeps the session in process memory only.
type MemoryStore struct {
	mu      sync.RWMutex
	session Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.session.Valid() {
		return Session{}, ErrNoSession
	}
	return s.session, nil
}

func (s *MemoryStore) Save(session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = session
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = Session{}
	return nil
}
