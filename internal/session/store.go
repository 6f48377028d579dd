package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"microgrid-console/internal/api"
	"microgrid-console/internal/domain"
)

// State is the persisted part of a session. Transient fields (the last
// login error) live on the Store and never reach disk.
type State struct {
	User          *domain.User `json:"user,omitempty"`
	Token         string       `json:"token,omitempty"`
	Authenticated bool         `json:"authenticated"`
}

type Store struct {
	path string

	mu      sync.RWMutex
	state   State
	lastErr string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Load rehydrates the session from disk. A missing file is a clean
// unauthenticated session, not an error.
func (s *Store) Load() error {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

// Login exchanges credentials through the client. Success stores the user
// and token, marks the session authenticated, pushes the token into the
// client and persists. Failure records the error message and leaves the
// session unauthenticated.
func (s *Store) Login(ctx context.Context, client *api.Client, username, password string) error {
	out, err := client.Login(ctx, username, password)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.state = State{}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	user := out.User
	s.state = State{User: &user, Token: out.AccessToken, Authenticated: true}
	s.lastErr = ""
	err = s.persistLocked()
	s.mu.Unlock()

	client.SetToken(out.AccessToken)
	return err
}

// Logout clears every session field synchronously and persists the
// cleared state. Tearing down the synchronizer is the caller's job.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
	s.lastErr = ""
	return s.persistLocked()
}

// HasRole reports whether the session's role rank satisfies required.
// Unauthenticated sessions and unknown roles satisfy nothing.
func (s *Store) HasRole(required domain.Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.state.Authenticated || s.state.User == nil {
		return false
	}
	return s.state.User.Role.AtLeast(required)
}

func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Authenticated
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// Current returns a copy of the logged-in user.
func (s *Store) Current() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return domain.User{}, false
	}
	return *s.state.User, s.state.Authenticated
}

// Err returns the last login failure message, empty after a success.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Store) persistLocked() error {
	b, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}
