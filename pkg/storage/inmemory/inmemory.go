// Package inmemory provides a record store kept in process memory.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ecofes/lubebot/pkg/storage"
)

// Driver implements storage.Driver using in-memory slices.
type Driver struct {
	// mu is a read write sync mutex guarding the records below
	mu sync.RWMutex

	queries []*storage.QueryRecord
	leads   []*storage.Lead

	// byEmail indexes leads by normalized email
	byEmail map[string]*storage.Lead
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{byEmail: make(map[string]*storage.Lead)}
}

// SaveQuery stores a query record.
func (s *Driver) SaveQuery(_ context.Context, q *storage.QueryRecord) (*storage.QueryRecord, error) {
	if q == nil {
		return nil, errors.New("cannot store nil query record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *q
	rec.ID = int64(len(s.queries) + 1)
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	s.queries = append(s.queries, &rec)

	out := rec
	return &out, nil
}

// ListQueries returns query records newest first.
func (s *Driver) ListQueries(_ context.Context, filter storage.QueryFilter) ([]*storage.QueryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*storage.QueryRecord{}
	skipped := 0
	for i := len(s.queries) - 1; i >= 0; i-- {
		q := s.queries[i]
		if filter.UserID != 0 && q.UserID != filter.UserID {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		rec := *q
		out = append(out, &rec)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// SaveLead stores a lead and flags the user's queries.
func (s *Driver) SaveLead(_ context.Context, lead *storage.Lead) (*storage.Lead, error) {
	if lead == nil {
		return nil, storage.ErrInvalidLead
	}
	rec := *lead
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[rec.Email]; ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrDuplicateLead, rec.Email)
	}

	rec.ID = int64(len(s.leads) + 1)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.leads = append(s.leads, &rec)
	s.byEmail[rec.Email] = &rec

	if rec.UserID != 0 {
		for _, q := range s.queries {
			if q.UserID == rec.UserID {
				q.IsLead = true
			}
		}
	}

	out := rec
	return &out, nil
}

// GetLead looks a lead up by email.
func (s *Driver) GetLead(_ context.Context, email string) (*storage.Lead, error) {
	probe := storage.Lead{Email: email}
	probe.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.byEmail[probe.Email]
	if !ok {
		return nil, fmt.Errorf("%w: lead %s", storage.ErrNotFound, probe.Email)
	}
	out := *l
	return &out, nil
}

// ListLeads returns all leads, oldest first.
func (s *Driver) ListLeads(_ context.Context) ([]*storage.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*storage.Lead, len(s.leads))
	for i, l := range s.leads {
		rec := *l
		out[i] = &rec
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Driver) Close() error {
	return nil
}

var _ storage.Driver = (*Driver)(nil)
