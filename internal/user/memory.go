package user

import (
	"context"
	"sync"
)

// MemoryStore keeps users in process. It backs local runs without a
// database and the handler tests.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[int]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[int]User)}
}

func (s *MemoryStore) Get(_ context.Context, id int) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) Exists(_ context.Context, id int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *MemoryStore) Create(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return ErrDuplicateID
	}
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id int, username, email, passwordHash *string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if username != nil {
		u.Username = *username
	}
	if email != nil {
		u.Email = *email
	}
	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
	s.users[id] = u
	return u, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}
