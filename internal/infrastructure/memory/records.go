package memory

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/go-email-verify/internal/domain"
	"github.com/go-email-verify/internal/pkg/id"
)

// RecordStore keeps both collections in process memory, keyed by email.
type RecordStore struct {
	mu      sync.RWMutex
	records map[domain.Collection]map[string]domain.Record
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: map[domain.Collection]map[string]domain.Record{
			domain.CollectionUsers: {},
			domain.CollectionLeads: {},
		},
	}
}

func (s *RecordStore) FindByEmail(_ context.Context, c domain.Collection, email string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[c][email]
	if !ok {
		return nil, fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	return &rec, nil
}

func (s *RecordStore) FindByEmailAndToken(_ context.Context, c domain.Collection, email, token string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[c][email]
	if !ok || subtle.ConstantTimeCompare([]byte(rec.Token), []byte(token)) != 1 {
		return nil, fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	return &rec, nil
}

func (s *RecordStore) UpsertUnverified(_ context.Context, c domain.Collection, fields domain.RecordFields, token string) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.records[c]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", c)
	}
	now := time.Now().UTC()
	rec, exists := coll[fields.Email]
	if !exists {
		rec = domain.Record{ID: id.New(), Email: fields.Email, CreatedAt: now}
	}
	if c == domain.CollectionLeads {
		rec.Name = fields.Name
		rec.Phone = fields.Phone
	}
	rec.Token = token
	rec.Verified = false
	rec.VerifiedAt = nil
	rec.UpdatedAt = now
	coll[fields.Email] = rec
	return &rec, nil
}

func (s *RecordStore) MarkVerified(_ context.Context, c domain.Collection, target *domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[c][target.Email]
	if !ok || rec.ID != target.ID {
		return fmt.Errorf("record %s: %w", target.ID, domain.ErrNotFound)
	}
	// A token issued after the lookup invalidates it.
	if subtle.ConstantTimeCompare([]byte(rec.Token), []byte(target.Token)) != 1 {
		return fmt.Errorf("record %s: token replaced: %w", target.ID, domain.ErrNotFound)
	}
	if rec.Verified {
		return nil
	}
	now := time.Now().UTC()
	rec.Verified = true
	rec.VerifiedAt = &now
	rec.UpdatedAt = now
	s.records[c][target.Email] = rec
	return nil
}

func (s *RecordStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
