// Package memory holds the rejected-plan memory: a caller-owned store of
// plans that were previously rejected, together with near-duplicate search
// over their fingerprints. The store is always passed explicitly; there is
// no process-wide registry.
package memory

import (
	"fmt"
	"sync"
	"time"

	"dejavu/internal/logging"
	"dejavu/internal/plan"

	"github.com/google/uuid"
)

// RecordID identifies a remembered rejection.
type RecordID string

// NewRecordID returns a fresh unique record ID.
func NewRecordID() RecordID {
	return RecordID(uuid.New().String())
}

// RejectedPlan is a previously rejected plan together with its fingerprint.
// Fingerprint may be empty on records imported from older registries; such
// records never match a search.
type RejectedPlan struct {
	ID          RecordID         `json:"id"`
	Plan        plan.Plan        `json:"plan"`
	Fingerprint plan.Fingerprint `json:"fingerprint,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	RejectedAt  time.Time        `json:"rejected_at"`
}

// Store is the rejected-plan memory owned by the caller.
type Store interface {
	// Remember appends a record, assigning an ID and timestamp when absent.
	Remember(rec RejectedPlan) (RecordID, error)

	// Records returns a snapshot of all records in insertion order.
	Records() []RejectedPlan

	// Len returns the number of records.
	Len() int

	// Forget removes a record by ID, reporting whether it was present.
	Forget(id RecordID) bool

	// Clear removes all records.
	Clear()
}

// InMemoryStore is an insertion-ordered, mutex-guarded Store.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []RejectedPlan
	limit   int // 0 = unbounded
}

// NewInMemoryStore creates an empty unbounded store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make([]RejectedPlan, 0)}
}

// SetLimit bounds the store to the most recent n records (0 = unbounded).
// When the bound is exceeded, the oldest records are dropped.
func (s *InMemoryStore) SetLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = n
	s.enforceLimitLocked()
}

// Remember appends a record. An empty ID gets a fresh UUID; a zero
// RejectedAt gets the current time.
func (s *InMemoryStore) Remember(rec RejectedPlan) (RecordID, error) {
	if rec.ID == "" {
		rec.ID = NewRecordID()
	}
	if rec.RejectedAt.IsZero() {
		rec.RejectedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.ID == rec.ID {
			return "", fmt.Errorf("record %s already remembered", rec.ID)
		}
	}

	s.records = append(s.records, rec)
	s.enforceLimitLocked()

	logging.MemoryDebug("Remembered rejected plan %s (fingerprint=%s, records=%d)",
		rec.ID, rec.Fingerprint.Short(), len(s.records))
	return rec.ID, nil
}

// enforceLimitLocked drops the oldest records past the limit.
// Caller must hold the write lock.
func (s *InMemoryStore) enforceLimitLocked() {
	if s.limit <= 0 || len(s.records) <= s.limit {
		return
	}
	dropped := len(s.records) - s.limit
	s.records = append([]RejectedPlan(nil), s.records[dropped:]...)
	logging.MemoryDebug("Dropped %d oldest record(s) to honor limit %d", dropped, s.limit)
}

// Records returns a snapshot copy in insertion order.
func (s *InMemoryStore) Records() []RejectedPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RejectedPlan, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Forget removes a record by ID.
func (s *InMemoryStore) Forget(id RecordID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.records {
		if rec.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			logging.MemoryDebug("Forgot record %s (records=%d)", id, len(s.records))
			return true
		}
	}
	return false
}

// Clear removes all records.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = s.records[:0]
}
