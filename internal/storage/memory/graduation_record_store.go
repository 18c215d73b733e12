package memory

import (
	"context"
	"sync"

	"token-launch-lab/internal/domain"
	"token-launch-lab/internal/storage"
)

// GraduationRecordStore is an in-memory implementation of
// storage.GraduationRecordStore.
type GraduationRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.GraduationRecord
}

// NewGraduationRecordStore creates a new in-memory graduation record store.
func NewGraduationRecordStore() *GraduationRecordStore {
	return &GraduationRecordStore{
		data: make(map[string]*domain.GraduationRecord),
	}
}

// Compile-time interface check.
var _ storage.GraduationRecordStore = (*GraduationRecordStore)(nil)

// Insert adds a record. Returns ErrDuplicateKey if the token already graduated.
func (s *GraduationRecordStore) Insert(_ context.Context, record *domain.GraduationRecord) error {
	if record == nil || record.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[record.TokenID]; exists {
		return storage.ErrDuplicateKey
	}
	copy := *record
	s.data[record.TokenID] = &copy
	return nil
}

// GetByTokenID retrieves the record. Returns ErrNotFound if absent.
func (s *GraduationRecordStore) GetByTokenID(_ context.Context, tokenID string) (*domain.GraduationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.data[tokenID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *record
	return &copy, nil
}
