package users

import (
	"context"
	"sync"
	"time"

	"github.com/pennywise/pennywise/backend/go-services/internal/models"
)

// MemoryStore is an in-memory Store used for local development and unit
// tests. Uniqueness checks and writes happen under one lock.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return m.byID[id].Clone(), nil
}

func (m *MemoryStore) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byID[id].Clone(), nil
}

func (m *MemoryStore) Create(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := prepareCreate(u, time.Now().UTC())
	if _, ok := m.byID[rec.ID]; ok {
		return nil, ErrDuplicateEmail
	}
	if err := m.checkUnique(rec); err != nil {
		return nil, err
	}
	m.byID[rec.ID] = rec
	m.byEmail[rec.Email] = rec.ID
	return rec.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.byID[u.ID]
	if !ok {
		return nil, ErrNotFound
	}
	rec := u.Clone()
	rec.Email = models.NormalizeEmail(rec.Email)
	rec.UpdatedAt = time.Now().UTC()
	if err := m.checkUnique(rec); err != nil {
		return nil, err
	}
	delete(m.byEmail, prev.Email)
	m.byID[rec.ID] = rec
	m.byEmail[rec.Email] = rec.ID
	return rec.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byEmail, u.Email)
	delete(m.byID, id)
	return nil
}

// checkUnique must be called with the write lock held.
func (m *MemoryStore) checkUnique(rec *models.User) error {
	if owner, ok := m.byEmail[rec.Email]; ok && owner != rec.ID {
		return ErrDuplicateEmail
	}
	if rec.ExternalID == "" {
		return nil
	}
	for id, other := range m.byID {
		if id != rec.ID && other.Provider == rec.Provider && other.ExternalID == rec.ExternalID {
			return ErrDuplicateExternalID
		}
	}
	return nil
}
