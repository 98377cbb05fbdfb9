package auth

import (
	"context"
	"sync"
)

// SessionStore keeps the durable session record of each profile.
//
// Load returns ErrNoSession when there is no record and ErrMalformedSession
// when the record cannot be decoded; any other error means the store itself
// is not available.
type SessionStore interface {
	Load(ctx context.Context, profile string) (*Session, error)
	Save(ctx context.Context, profile string, session *Session) error
	Delete(ctx context.Context, profile string) error
}

var (
	_ SessionStore = (*MemoryStore)(nil)
	_ SessionStore = (*RedisStore)(nil)
	_ SessionStore = (*CachedStore)(nil)
)

// MemoryStore is used in tests and when running without redis.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: map[string][]byte{},
	}
}

func (s *MemoryStore) Load(_ context.Context, profile string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.records[profile]
	if !ok {
		return nil, ErrNoSession
	}
	return DecodeSession(raw)
}

func (s *MemoryStore) Save(_ context.Context, profile string, session *Session) error {
	raw, err := EncodeSession(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[profile] = raw
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, profile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, profile)
	return nil
}

// PutRaw stores the value as is, without validation.
func (s *MemoryStore) PutRaw(profile string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[profile] = raw
}

func (s *MemoryStore) Raw(profile string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.records[profile]
	return raw, ok
}
