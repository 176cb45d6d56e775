// Package file persists users and session snapshots as whole-file JSON
// documents under a data directory (users.json, usage.json,
// conversations.json). Durability is best-effort: every save rewrites the
// file in full. This is the default backend and mirrors the original
// flat-file layout of the service.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/JesseOrSomething/ZenCode/internal/errs"
	"github.com/JesseOrSomething/ZenCode/internal/model"
)

const (
	usersFile         = "users.json"
	usageFile         = "usage.json"
	conversationsFile = "conversations.json"
)

// Store implements UserRepository and SnapshotStore on flat JSON files.
type Store struct {
	dir string

	mu    sync.Mutex
	users []*model.User
}

// New creates the data directory if needed and loads the user list.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &Store{dir: dir}
	if err := s.loadUsers(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadUsers() error {
	raw, err := os.ReadFile(filepath.Join(s.dir, usersFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, &s.users)
}

// saveUsers must be called with the mutex held. The in-memory list is only
// replaced after the file write succeeds, so a failed save leaves no user
// that exists in memory but not on disk.
func (s *Store) saveUsers(users []*model.User) error {
	if err := writeJSON(filepath.Join(s.dir, usersFile), users); err != nil {
		return err
	}
	s.users = users
	return nil
}

// Create appends a user and rewrites users.json.
func (s *Store) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.users {
		if strings.EqualFold(have.Email, u.Email) {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *u
	return s.saveUsers(append(s.users[:len(s.users):len(s.users)], &cpy))
}

// GetByID loads a user by ID.
func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			cpy := *u
			return &cpy, nil
		}
	}
	return nil, errs.ErrNotFound
}

// GetByEmail loads a user by email (case-insensitive, as the original did).
func (s *Store) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cpy := *u
			return &cpy, nil
		}
	}
	return nil, errs.ErrNotFound
}

// UpdatePlan replaces the stored plan and billing references.
func (s *Store) UpdatePlan(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, have := range s.users {
		if have.ID == u.ID {
			next := make([]*model.User, len(s.users))
			copy(next, s.users)
			cpy := *u
			next[i] = &cpy
			return s.saveUsers(next)
		}
	}
	return errs.ErrNotFound
}

// LoadAll reads usage.json and conversations.json; missing files yield an
// empty snapshot.
func (s *Store) LoadAll(_ context.Context) (*model.Snapshot, error) {
	snap := &model.Snapshot{
		Usage:         make(map[string]model.UsageRecord),
		Conversations: make(map[string][]model.Turn),
	}
	if err := readJSON(filepath.Join(s.dir, usageFile), &snap.Usage); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(s.dir, conversationsFile), &snap.Conversations); err != nil {
		return nil, err
	}
	return snap, nil
}

// SaveAll rewrites usage.json and conversations.json.
func (s *Store) SaveAll(_ context.Context, snap *model.Snapshot) error {
	if err := writeJSON(filepath.Join(s.dir, usageFile), snap.Usage); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.dir, conversationsFile), snap.Conversations)
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
