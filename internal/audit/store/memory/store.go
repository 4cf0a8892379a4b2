// Package memory provides an in-memory audit store for tests and dev mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
)

type Store struct {
	mu      sync.RWMutex
	records []audit.Record

	// failNext forces the next AppendBatch to fail; used by writer tests to
	// exercise the requeue path.
	failNext error
	// failNextSearch forces the next Search to fail.
	failNextSearch error
}

func New() *Store {
	return &Store{}
}

func (s *Store) AppendBatch(_ context.Context, records []audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	s.records = append(s.records, records...)
	return nil
}

func (s *Store) Search(_ context.Context, criteria audit.Criteria) ([]audit.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNextSearch != nil {
		err := s.failNextSearch
		s.failNextSearch = nil
		return nil, err
	}

	matched := make([]audit.Record, 0)
	for _, r := range s.records {
		if matches(r, criteria) {
			matched = append(matched, r)
		}
	}

	// Most recent first, matching the durable store's contract.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if criteria.Offset > 0 {
		if criteria.Offset >= len(matched) {
			return []audit.Record{}, nil
		}
		matched = matched[criteria.Offset:]
	}
	if criteria.Limit > 0 && criteria.Limit < len(matched) {
		matched = matched[:criteria.Limit]
	}
	return matched, nil
}

func matches(r audit.Record, c audit.Criteria) bool {
	if !c.StartDate.IsZero() && r.CreatedAt.Before(c.StartDate) {
		return false
	}
	if !c.EndDate.IsZero() && r.CreatedAt.After(c.EndDate) {
		return false
	}
	if c.ActorID != "" && r.ActorID != c.ActorID {
		return false
	}
	if c.Action != "" && r.Action != c.Action {
		return false
	}
	if c.ResourceType != "" && r.ResourceType != c.ResourceType {
		return false
	}
	if c.ProtectedData != nil && r.ProtectedData != *c.ProtectedData {
		return false
	}
	if c.SourceIP != "" && r.SourceIP != c.SourceIP {
		return false
	}
	return true
}

// Len returns the number of durably stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// All returns a copy of every stored record in insertion order.
func (s *Store) All() []audit.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Record{}, s.records...)
}

// FailNextAppend makes the next AppendBatch return err.
func (s *Store) FailNextAppend(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// FailNextSearch makes the next Search return err.
func (s *Store) FailNextSearch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextSearch = err
}

// Clear removes all stored records.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}
