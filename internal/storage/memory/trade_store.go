package memory

import (
	"context"
	"sort"
	"sync"

	"token-launch-lab/internal/domain"
	"token-launch-lab/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu sync.RWMutex
	// trades per token, kept sorted by sequence number ASC
	data map[string][]*domain.Trade
	seen map[string]map[uint64]struct{}
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string][]*domain.Trade),
		seen: make(map[string]map[uint64]struct{}),
	}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert appends a trade. Returns ErrDuplicateKey if (token_id, sequence_number) exists.
func (s *TradeStore) Insert(_ context.Context, trade *domain.Trade) error {
	if trade == nil || trade.TokenID == "" || trade.SequenceNumber == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seqs, ok := s.seen[trade.TokenID]
	if !ok {
		seqs = make(map[uint64]struct{})
		s.seen[trade.TokenID] = seqs
	}
	if _, exists := seqs[trade.SequenceNumber]; exists {
		return storage.ErrDuplicateKey
	}
	seqs[trade.SequenceNumber] = struct{}{}

	copy := *trade
	trades := append(s.data[trade.TokenID], &copy)
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].SequenceNumber < trades[j].SequenceNumber
	})
	s.data[trade.TokenID] = trades
	return nil
}

// GetByTokenID retrieves all trades for a token, ordered by sequence ASC.
func (s *TradeStore) GetByTokenID(_ context.Context, tokenID string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.data[tokenID]
	out := make([]*domain.Trade, len(trades))
	for i, t := range trades {
		copy := *t
		out[i] = &copy
	}
	return out, nil
}

// GetSince retrieves up to limit trades with sequence > sinceSequence.
func (s *TradeStore) GetSince(_ context.Context, tokenID string, sinceSequence uint64, limit int) ([]*domain.Trade, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Trade
	for _, t := range s.data[tokenID] {
		if t.SequenceNumber <= sinceSequence {
			continue
		}
		copy := *t
		out = append(out, &copy)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// GetByTimeRange retrieves trades within [start, end] inclusive.
func (s *TradeStore) GetByTimeRange(_ context.Context, tokenID string, start, end int64) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Trade
	for _, t := range s.data[tokenID] {
		if t.Timestamp < start || t.Timestamp > end {
			continue
		}
		copy := *t
		out = append(out, &copy)
	}
	return out, nil
}
