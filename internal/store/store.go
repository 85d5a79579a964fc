// Package store persists users as a flat mapping in a single JSON file,
// keyed by email. There is no indexing or migration strategy; the file is
// rewritten in full on every change. A process-local mutex serializes
// access from concurrent handlers.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/studyforge/examgen/internal/model"
)

var (
	// ErrEmailTaken is returned by Register when the email already exists.
	ErrEmailTaken = errors.New("email already exists")
	// ErrNotFound is returned when no user has the given email.
	ErrNotFound = errors.New("email not found")
)

// Store is a flat-file user store.
type Store struct {
	path string

	mu    sync.Mutex
	users map[string]model.User
}

// Open loads the user file at path. A missing file yields an empty store;
// an unreadable or corrupt file is logged and treated as empty, matching
// the legacy deployment's behavior.
func Open(path string) (*Store, error) {
	s := &Store{path: path, users: make(map[string]model.User)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user file: %w", err)
	}
	if err := json.Unmarshal(data, &s.users); err != nil {
		slog.Warn("user file is corrupt, starting empty", "path", path, "error", err)
		s.users = make(map[string]model.User)
	}
	return s, nil
}

// HashPassword returns the hex SHA-256 digest of the password. Unsalted,
// to stay compatible with hashes in existing users.json files.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Register creates a new user. Returns ErrEmailTaken if the email is
// already registered.
func (s *Store) Register(name, email, password string, role model.UserRole) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[email]; ok {
		return nil, ErrEmailTaken
	}
	u := model.User{
		Email:        email,
		Name:         name,
		PasswordHash: HashPassword(password),
		Role:         role,
	}
	s.users[email] = u
	if err := s.save(); err != nil {
		delete(s.users, email)
		return nil, err
	}
	slog.Info("registered user", "email", email, "role", role)
	return &u, nil
}

// Authenticate checks credentials. Returns nil (and no error) when the
// email is unknown or the password does not match.
func (s *Store) Authenticate(email, password string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok || u.PasswordHash != HashPassword(password) {
		return nil, nil
	}
	return &u, nil
}

// Get returns the user with the given email, or nil.
func (s *Store) Get(email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// ResetPassword replaces the password hash for an existing user. Returns
// ErrNotFound when the email is unknown. No verification step: this
// mirrors the legacy "forgot password" form.
func (s *Store) ResetPassword(email, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return ErrNotFound
	}
	old := u.PasswordHash
	u.PasswordHash = HashPassword(newPassword)
	s.users[email] = u
	if err := s.save(); err != nil {
		u.PasswordHash = old
		s.users[email] = u
		return err
	}
	slog.Info("password reset", "email", email)
	return nil
}

// Count returns the number of registered users.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// save writes the user map to disk. Caller must hold the mutex.
func (s *Store) save() error {
	data, err := json.Marshal(s.users)
	if err != nil {
		return fmt.Errorf("marshal users: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create user dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write user file: %w", err)
	}
	return nil
}
