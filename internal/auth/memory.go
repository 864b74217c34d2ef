package auth

import (
	"context"
	"sync"
	"time"
)

var _ RefreshTokenStore = (*MemoryStore)(nil)

// MemoryStore is an in-process RefreshTokenStore used in tests and in
// demo mode when no database is configured. The single mutex gives the
// same revoke-if-active atomicity the SQL conditional update provides.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]*RefreshToken)}
}

func (s *MemoryStore) Create(_ context.Context, tok *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tok
	s.tokens[tok.ID] = &cp
	return nil
}

func (s *MemoryStore) Find(_ context.Context, id string) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tok
	return &cp, nil
}

func (s *MemoryStore) RevokeIfActive(_ context.Context, id, replacedBy string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[id]
	if !ok || tok.Revoked {
		return ErrInvalidRefreshToken
	}
	tok.Revoked = true
	t := at
	tok.RevokedAt = &t
	tok.ReplacedBy = replacedBy
	return nil
}

func (s *MemoryStore) RevokeAllForUser(_ context.Context, userID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, tok := range s.tokens {
		if tok.UserID != userID || tok.Revoked {
			continue
		}
		tok.Revoked = true
		t := at
		tok.RevokedAt = &t
		n++
	}
	return n, nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, tok := range s.tokens {
		if tok.ExpiresAt.Before(before) {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}
