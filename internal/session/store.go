package session

import (
	"context"
	"sync"

	"github.com/desertthunder/clouder/internal/models"
)

// TokenStore persists the access/refresh token pair as a unit.
//
// Load returns the zero [models.Session] when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (models.Session, error)
	Save(ctx context.Context, tokens models.Session) error
	Clear(ctx context.Context) error
}

// MemoryStore is a process-local [TokenStore].
type MemoryStore struct {
	mu     sync.Mutex
	tokens models.Session
}

// NewMemoryStore returns a store seeded with tokens.
func NewMemoryStore(tokens models.Session) *MemoryStore {
	return &MemoryStore{tokens: tokens}
}

func (m *MemoryStore) Load(context.Context) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens, nil
}

func (m *MemoryStore) Save(_ context.Context, tokens models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = tokens
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = models.Session{}
	return nil
}
