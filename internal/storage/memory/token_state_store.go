package memory

import (
	"context"
	"sort"
	"sync"

	"token-launch-lab/internal/domain"
	"token-launch-lab/internal/storage"
)

// TokenStateStore is an in-memory implementation of storage.TokenStateStore.
type TokenStateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenState
}

// NewTokenStateStore creates a new in-memory token state store.
func NewTokenStateStore() *TokenStateStore {
	return &TokenStateStore{
		data: make(map[string]*domain.TokenState),
	}
}

// Compile-time interface check.
var _ storage.TokenStateStore = (*TokenStateStore)(nil)

// Insert adds a newly created token. Returns ErrDuplicateKey if exists.
func (s *TokenStateStore) Insert(_ context.Context, state *domain.TokenState) error {
	if state == nil || state.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[state.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[state.ID] = state.Clone()
	return nil
}

// GetByID retrieves a token's state. Returns ErrNotFound if absent.
func (s *TokenStateStore) GetByID(_ context.Context, tokenID string) (*domain.TokenState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.data[tokenID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return state.Clone(), nil
}

// UpdateCAS replaces the stored state iff the stored version equals
// expectedVersion. The check and the swap happen under one lock, so two
// writers racing on the same expected version see exactly one success.
func (s *TokenStateStore) UpdateCAS(_ context.Context, state *domain.TokenState, expectedVersion uint64) error {
	if state == nil || state.ID == "" {
		return storage.ErrInvalidInput
	}
	if state.Version != expectedVersion+1 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.data[state.ID]
	if !exists {
		return storage.ErrNotFound
	}
	if current.Version != expectedVersion {
		return storage.ErrVersionConflict
	}
	s.data[state.ID] = state.Clone()
	return nil
}

// List returns all token states ordered by creation time ASC.
func (s *TokenStateStore) List(_ context.Context) ([]*domain.TokenState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make([]*domain.TokenState, 0, len(s.data))
	for _, state := range s.data {
		states = append(states, state.Clone())
	}
	sort.Slice(states, func(i, j int) bool {
		if states[i].CreatedAt != states[j].CreatedAt {
			return states[i].CreatedAt < states[j].CreatedAt
		}
		return states[i].ID < states[j].ID
	})
	return states, nil
}
