// Package screening runs batch safety sweeps: every patient in a roster has
// their active medication list re-checked against the interaction and
// allergy references, e.g. after an interaction database update.
package screening

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/psychrx/go-rxguard/internal/domain/allergy"
	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/interaction"
	"github.com/psychrx/go-rxguard/internal/domain/prescription"
	"github.com/psychrx/go-rxguard/pkg/workerpool"
)

// PatientScreen is the safety result for one patient in a batch sweep.
type PatientScreen struct {
	PatientID       string                         `json:"patient_id"`
	PatientName     string                         `json:"patient_name"`
	Interactions    []*interaction.DrugInteraction `json:"interactions,omitempty"`
	AllergyWarnings []allergy.Warning              `json:"allergy_warnings,omitempty"`
	Flagged         bool                           `json:"flagged"`
	Error           string                         `json:"error,omitempty"`
}

// Screener fans patient screens out over a bounded worker pool.
type Screener struct {
	patients prescription.PatientRepository
	checker  *interaction.Checker
	workers  int
	logger   *zap.Logger
}

// NewScreener creates a batch screener. workers bounds the concurrent
// per-patient checks; values <= 0 fall back to 8.
func NewScreener(patients prescription.PatientRepository, checker *interaction.Checker, workers int, logger *zap.Logger) *Screener {
	if workers <= 0 {
		workers = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Screener{patients: patients, checker: checker, workers: workers, logger: logger}
}

// ScreenPatients checks every patient's active medications for interactions
// and allergy conflicts. Results come back in completion order; a per-patient
// failure is reported in its screen rather than aborting the batch.
func (s *Screener) ScreenPatients(ctx context.Context, patientIDs []string, region catalog.Region) ([]*PatientScreen, error) {
	if len(patientIDs) == 0 {
		return nil, nil
	}

	cfg := workerpool.Config{
		Workers:   s.workers,
		QueueSize: len(patientIDs),
	}
	pool, err := workerpool.New(cfg, func(ctx context.Context, task *workerpool.Task) *workerpool.Result {
		id, _ := task.Payload.(string)
		// Per-patient failures ride back in the screen itself so the pool
		// does not retry or drop them.
		screen := s.screenOne(ctx, id, region)
		return &workerpool.Result{TaskID: task.ID, Success: true, Data: screen}
	}, s.logger)
	if err != nil {
		return nil, fmt.Errorf("create screening pool: %w", err)
	}

	pool.Start()
	defer pool.Stop()

	for _, id := range patientIDs {
		if err := pool.Submit(&workerpool.Task{ID: id, Payload: id, Context: ctx}); err != nil {
			return nil, fmt.Errorf("submit screen for %s: %w", id, err)
		}
	}

	screens := make([]*PatientScreen, 0, len(patientIDs))
	for range patientIDs {
		select {
		case <-ctx.Done():
			return screens, ctx.Err()
		case result := <-pool.Results():
			if screen, ok := result.Data.(*PatientScreen); ok {
				screens = append(screens, screen)
			}
		}
	}
	return screens, nil
}

func (s *Screener) screenOne(ctx context.Context, patientID string, region catalog.Region) *PatientScreen {
	screen := &PatientScreen{PatientID: patientID}

	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		screen.Error = err.Error()
		return screen
	}
	screen.PatientName = patient.Name

	interactions, err := s.checker.CheckAll(ctx, patient.ActiveMedications, region)
	if err != nil {
		screen.Error = err.Error()
		return screen
	}
	screen.Interactions = interactions
	screen.AllergyWarnings = allergy.CrossReference(patient.Allergies, patient.ActiveMedications)
	screen.Flagged = len(interactions) > 0 || len(screen.AllergyWarnings) > 0

	s.logger.Debug("patient screened",
		zap.String("patient_id", patientID),
		zap.Int("interactions", len(interactions)),
		zap.Int("allergy_warnings", len(screen.AllergyWarnings)),
	)
	return screen
}
