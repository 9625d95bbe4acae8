// Package prescription implements the prescription-building session
// aggregate and its domain events.
package prescription

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
)

// EventType represents the type of domain event
type EventType string

const (
	EventSessionStarted        EventType = "SessionStarted"
	EventLineAdded             EventType = "LineAdded"
	EventLineRemoved           EventType = "LineRemoved"
	EventMedicationSelected    EventType = "MedicationSelected"
	EventValidationBlocked     EventType = "ValidationBlocked"
	EventPrescriptionSubmitted EventType = "PrescriptionSubmitted"
)

// Event represents a domain event
type Event struct {
	ID          string          `json:"id"`
	AggregateID string          `json:"aggregate_id"`
	EventType   EventType       `json:"event_type"`
	EventData   json.RawMessage `json:"event_data"`
	Version     int             `json:"version"`
	Timestamp   time.Time       `json:"timestamp"`
	PatientID   string          `json:"patient_id,omitempty"`
	Region      catalog.Region  `json:"region,omitempty"`
}

// NewEvent creates a new event
func NewEvent(aggregateID string, eventType EventType, data interface{}) (*Event, error) {
	eventData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:          uuid.New().String(),
		AggregateID: aggregateID,
		EventType:   eventType,
		EventData:   eventData,
		Timestamp:   time.Now().UTC(),
	}, nil
}

// WithAuditInfo attaches patient and region context for the audit trail.
func (e *Event) WithAuditInfo(patientID string, region catalog.Region) *Event {
	e.PatientID = patientID
	e.Region = region
	return e
}

// SessionStartedData records session creation details.
type SessionStartedData struct {
	SessionID string         `json:"session_id"`
	PatientID string         `json:"patient_id"`
	Region    catalog.Region `json:"region"`
	StartedAt time.Time      `json:"started_at"`
}

// LineAddedData records a new empty medication line.
type LineAddedData struct {
	SessionID string `json:"session_id"`
	LineID    string `json:"line_id"`
}

// LineRemovedData records removal of a medication line.
type LineRemovedData struct {
	SessionID string `json:"session_id"`
	LineID    string `json:"line_id"`
}

// MedicationSelectedData records a medication choice on a line, including the
// refill clamp applied by region policy.
type MedicationSelectedData struct {
	SessionID      string `json:"session_id"`
	LineID         string `json:"line_id"`
	MedicationID   string `json:"medication_id"`
	MedicationName string `json:"medication_name"`
	Schedule       string `json:"schedule,omitempty"`
	RefillsBefore  int    `json:"refills_before"`
	RefillsAfter   int    `json:"refills_after"`
}

// ValidationBlockedData records the itemized reasons a validation run failed.
type ValidationBlockedData struct {
	SessionID string        `json:"session_id"`
	Reasons   []BlockReason `json:"reasons"`
	BlockedAt time.Time     `json:"blocked_at"`
}

// PrescriptionSubmittedData records a successful submission.
type PrescriptionSubmittedData struct {
	SessionID      string    `json:"session_id"`
	PrescriptionID string    `json:"prescription_id"`
	PatientID      string    `json:"patient_id"`
	LineCount      int       `json:"line_count"`
	WarningCount   int       `json:"warning_count"`
	SubmittedAt    time.Time `json:"submitted_at"`
}
