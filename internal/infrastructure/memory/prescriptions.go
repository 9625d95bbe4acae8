package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/psychrx/go-rxguard/internal/domain/prescription"
)

// PrescriptionStore keeps submitted prescriptions and session events in
// memory. It backs the demo deployment and tests; the postgres store is the
// durable equivalent.
type PrescriptionStore struct {
	mu            sync.RWMutex
	prescriptions map[string]*prescription.Prescription
	events        map[string][]*prescription.Event
}

// NewPrescriptionStore creates an empty store.
func NewPrescriptionStore() *PrescriptionStore {
	return &PrescriptionStore{
		prescriptions: make(map[string]*prescription.Prescription),
		events:        make(map[string][]*prescription.Event),
	}
}

// Store saves a submitted prescription record.
func (s *PrescriptionStore) Store(ctx context.Context, rx *prescription.Prescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.prescriptions[rx.ID]; exists {
		return fmt.Errorf("prescription %s already stored", rx.ID)
	}
	s.prescriptions[rx.ID] = rx
	return nil
}

// Get returns a stored prescription by ID.
func (s *PrescriptionStore) Get(ctx context.Context, id string) (*prescription.Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rx, ok := s.prescriptions[id]
	if !ok {
		return nil, fmt.Errorf("prescription %s not found", id)
	}
	return rx, nil
}

// SaveEvents appends a session's uncommitted events and clears them.
func (s *PrescriptionStore) SaveEvents(ctx context.Context, sess *prescription.Session) error {
	changes := sess.Changes()
	if len(changes) == 0 {
		return nil
	}
	s.mu.Lock()
	s.events[sess.ID()] = append(s.events[sess.ID()], changes...)
	s.mu.Unlock()
	sess.ClearChanges()
	return nil
}

// GetEvents returns the recorded events for a session in order.
func (s *PrescriptionStore) GetEvents(ctx context.Context, sessionID string) ([]*prescription.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*prescription.Event(nil), s.events[sessionID]...), nil
}
