package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Reader for tests and local runs.
type Memory struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]User
	properties map[uuid.UUID]Property
	contacts   map[uuid.UUID]Contact
}

func NewMemory() *Memory {
	return &Memory{
		users:      make(map[uuid.UUID]User),
		properties: make(map[uuid.UUID]Property),
		contacts:   make(map[uuid.UUID]Contact),
	}
}

func (m *Memory) PutUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *Memory) PutProperty(p Property) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[p.ID] = p
}

func (m *Memory) PutContact(c Contact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[c.ID] = c
}

func (m *Memory) GetUser(_ context.Context, id uuid.UUID) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) GetProperty(_ context.Context, id uuid.UUID) (Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.properties[id]
	if !ok {
		return Property{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) GetContact(_ context.Context, id uuid.UUID) (Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contacts[id]
	if !ok {
		return Contact{}, ErrNotFound
	}
	return c, nil
}

var _ Reader = (*Memory)(nil)
