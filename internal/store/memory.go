package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/hearth/internal/household"
)

// MemoryGateway keeps households in process memory. Every value crossing
// the boundary is deep-copied.
type MemoryGateway struct {
	mu    sync.RWMutex
	users map[string]*household.Household
	saves int
}

// NewMemoryGateway returns an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{users: make(map[string]*household.Household)}
}

// ListUsers returns saved user IDs in sorted order.
func (m *MemoryGateway) ListUsers(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Load returns a copy of the saved household.
func (m *MemoryGateway) Load(_ context.Context, userID string) (*household.Household, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return h.DeepCopy(), nil
}

// Save stores a copy of h unless a newer version is already stored.
func (m *MemoryGateway) Save(_ context.Context, h *household.Household) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.users[h.UserID]; ok && cur.Version > h.Version {
		return fmt.Errorf("%w: have %d, got %d", ErrStaleVersion, cur.Version, h.Version)
	}
	m.users[h.UserID] = h.DeepCopy()
	m.saves++
	return nil
}

// Saves returns how many writes were accepted.
func (m *MemoryGateway) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
