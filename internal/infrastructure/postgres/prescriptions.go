package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/prescription"
	"github.com/psychrx/go-rxguard/internal/infrastructure/redpanda"
)

// PrescriptionStore persists finalized prescriptions, their session events,
// and the outbox entry that announces submission downstream.
type PrescriptionStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPrescriptionStore creates a prescription store.
func NewPrescriptionStore(pool *pgxpool.Pool, logger *zap.Logger) *PrescriptionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrescriptionStore{pool: pool, logger: logger}
}

// Store persists an immutable prescription record and writes its submission
// outbox entry in the same transaction.
func (s *PrescriptionStore) Store(ctx context.Context, rx *prescription.Prescription) error {
	payload, err := json.Marshal(rx)
	if err != nil {
		return fmt.Errorf("encode prescription: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO prescriptions
		(id, session_id, patient_id, region, diagnosis, pharmacy_id, payload, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.Exec(ctx, query,
		rx.ID, rx.SessionID, rx.PatientID, string(rx.Region),
		rx.Diagnosis, rx.PharmacyID, payload, rx.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}

	entry := &OutboxEntry{
		AggregateID:   rx.ID,
		AggregateType: "Prescription",
		EventType:     string(prescription.EventPrescriptionSubmitted),
		Payload:       payload,
		KafkaTopic:    redpanda.TopicPrescriptionSubmitted,
		KafkaKey:      rx.PatientID,
	}
	if err := WriteEntry(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("prescription stored",
		zap.String("id", rx.ID),
		zap.String("session_id", rx.SessionID),
		zap.Int("lines", len(rx.Lines)),
	)
	return nil
}

// SaveEvents persists a session's uncommitted domain events.
func (s *PrescriptionStore) SaveEvents(ctx context.Context, sess *prescription.Session) error {
	changes := sess.Changes()
	if len(changes) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, event := range changes {
		if err := s.insertEvent(ctx, tx, event); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	sess.ClearChanges()
	return nil
}

func (s *PrescriptionStore) insertEvent(ctx context.Context, tx pgx.Tx, event *prescription.Event) error {
	query := `
		INSERT INTO session_events
		(id, aggregate_id, event_type, event_data, version, timestamp, patient_id, region)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.Exec(ctx, query,
		event.ID, event.AggregateID, event.EventType, event.EventData,
		event.Version, event.Timestamp, event.PatientID, string(event.Region),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvents retrieves all events recorded for a session.
func (s *PrescriptionStore) GetEvents(ctx context.Context, sessionID string) ([]*prescription.Event, error) {
	query := `
		SELECT id, aggregate_id, event_type, event_data, version, timestamp, patient_id, region
		FROM session_events
		WHERE aggregate_id = $1
		ORDER BY version ASC
	`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*prescription.Event
	for rows.Next() {
		e := &prescription.Event{}
		var region string
		err := rows.Scan(
			&e.ID, &e.AggregateID, &e.EventType, &e.EventData,
			&e.Version, &e.Timestamp, &e.PatientID, &region,
		)
		if err != nil {
			return nil, err
		}
		e.Region = catalog.Region(region)
		events = append(events, e)
	}
	return events, rows.Err()
}
