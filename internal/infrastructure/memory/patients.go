package memory

import (
	"context"
	"fmt"

	"github.com/psychrx/go-rxguard/internal/domain/prescription"
)

// PatientStore is an in-memory prescription.PatientRepository.
type PatientStore struct {
	patients map[string]*prescription.Patient
}

// NewPatientStore creates a store over the given patients.
func NewPatientStore(patients []*prescription.Patient) *PatientStore {
	s := &PatientStore{patients: make(map[string]*prescription.Patient, len(patients))}
	for _, p := range patients {
		s.patients[p.ID] = p
	}
	return s
}

// Get returns the patient by ID.
func (s *PatientStore) Get(ctx context.Context, id string) (*prescription.Patient, error) {
	p, ok := s.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient not found: %s", id)
	}
	return p, nil
}

// SeedPatients returns demo patients.
func SeedPatients() []*prescription.Patient {
	return []*prescription.Patient{
		{
			ID:          "pat-001",
			Name:        "Jane Doe",
			DateOfBirth: "1985-03-22",
			Allergies:   []string{"Penicillin"},
		},
		{
			ID:                "pat-002",
			Name:              "John Smith",
			DateOfBirth:       "1972-11-04",
			Allergies:         []string{"Latex"},
			ActiveMedications: []string{"Lithium Carbonate"},
		},
	}
}
