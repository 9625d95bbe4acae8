// Package postgres provides PostgreSQL adapters for the reference data
// repositories and the prescription persistence sink.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/interaction"
	"github.com/psychrx/go-rxguard/internal/domain/policy"
	"github.com/psychrx/go-rxguard/internal/domain/prescription"
)

// MedicationStore is a pgx-backed catalog.Repository.
type MedicationStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewMedicationStore creates a medication reference store.
func NewMedicationStore(pool *pgxpool.Pool, logger *zap.Logger) *MedicationStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MedicationStore{pool: pool, logger: logger}
}

// Find matches the substring case-insensitively against canonical, generic,
// and brand names.
func (s *MedicationStore) Find(ctx context.Context, substring string, region catalog.Region) ([]*catalog.Medication, error) {
	query := `
		SELECT id, name, generic_name, brand_name, dosage_forms, strengths,
		       category, schedules, local_names, requires_rx
		FROM medications
		WHERE name ILIKE '%' || $1 || '%'
		   OR generic_name ILIKE '%' || $1 || '%'
		   OR brand_name ILIKE '%' || $1 || '%'
		ORDER BY name ASC
	`

	rows, err := s.pool.Query(ctx, query, substring)
	if err != nil {
		return nil, fmt.Errorf("medication query: %w", err)
	}
	defer rows.Close()

	var meds []*catalog.Medication
	for rows.Next() {
		m := &catalog.Medication{}
		var strengths, schedules, localNames []byte
		err := rows.Scan(
			&m.ID, &m.Name, &m.GenericName, &m.BrandName, &m.DosageForms,
			&strengths, &m.Category, &schedules, &localNames, &m.RequiresRx,
		)
		if err != nil {
			return nil, fmt.Errorf("medication scan: %w", err)
		}
		if err := unmarshalInto(strengths, &m.Strengths); err != nil {
			return nil, err
		}
		if err := unmarshalInto(schedules, &m.Schedules); err != nil {
			return nil, err
		}
		if err := unmarshalInto(localNames, &m.LocalNames); err != nil {
			return nil, err
		}
		meds = append(meds, m)
	}
	return meds, rows.Err()
}

// InteractionStore is a pgx-backed interaction.Repository. Records are stored
// with region '' meaning all regions; a region-specific row wins.
type InteractionStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewInteractionStore creates an interaction reference store.
func NewInteractionStore(pool *pgxpool.Pool, logger *zap.Logger) *InteractionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InteractionStore{pool: pool, logger: logger}
}

// Lookup returns the known interaction for an unordered name pair, or nil
// when the pair has no data.
func (s *InteractionStore) Lookup(ctx context.Context, nameA, nameB string, region catalog.Region) (*interaction.DrugInteraction, error) {
	query := `
		SELECT drug_a, drug_b, severity, description, recommendation, alternatives
		FROM drug_interactions
		WHERE LEAST(LOWER(drug_a), LOWER(drug_b)) = LEAST(LOWER($1), LOWER($2))
		  AND GREATEST(LOWER(drug_a), LOWER(drug_b)) = GREATEST(LOWER($1), LOWER($2))
		  AND region IN ($3, '')
		ORDER BY region DESC
		LIMIT 1
	`

	rec := &interaction.DrugInteraction{}
	err := s.pool.QueryRow(ctx, query, nameA, nameB, string(region)).Scan(
		&rec.DrugA, &rec.DrugB, &rec.Severity, &rec.Description,
		&rec.Recommendation, &rec.Alternatives,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("interaction lookup: %w", err)
	}
	return rec, nil
}

// PatientStore is a pgx-backed prescription.PatientRepository.
type PatientStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPatientStore creates a patient reference store.
func NewPatientStore(pool *pgxpool.Pool, logger *zap.Logger) *PatientStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientStore{pool: pool, logger: logger}
}

// Get returns a patient's allergy and active-medication view by ID.
func (s *PatientStore) Get(ctx context.Context, id string) (*prescription.Patient, error) {
	query := `
		SELECT id, name, date_of_birth, allergies, active_medications
		FROM patients
		WHERE id = $1
	`

	p := &prescription.Patient{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.DateOfBirth, &p.Allergies, &p.ActiveMedications,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("patient not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("patient query: %w", err)
	}
	return p, nil
}

// RegionConfigStore is a pgx-backed policy.ConfigRepository.
type RegionConfigStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRegionConfigStore creates a region configuration store.
func NewRegionConfigStore(pool *pgxpool.Pool, logger *zap.Logger) *RegionConfigStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegionConfigStore{pool: pool, logger: logger}
}

// Get returns the policy configuration for a region.
func (s *RegionConfigStore) Get(ctx context.Context, region catalog.Region) (*policy.Config, error) {
	query := `
		SELECT region, refill_ceilings, default_refill_ceiling,
		       advisory_refill_ceiling, supports_epcs, required_identifiers
		FROM region_configs
		WHERE region = $1
	`

	cfg := &policy.Config{}
	var ceilings []byte
	var identifiers []string
	err := s.pool.QueryRow(ctx, query, string(region)).Scan(
		&cfg.Region, &ceilings, &cfg.DefaultRefillCeiling,
		&cfg.AdvisoryRefillCeiling, &cfg.SupportsEPCS, &identifiers,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no configuration for region: %s", region)
	}
	if err != nil {
		return nil, fmt.Errorf("region config query: %w", err)
	}
	if err := unmarshalInto(ceilings, &cfg.RefillCeilings); err != nil {
		return nil, err
	}
	for _, f := range identifiers {
		cfg.RequiredIdentifiers = append(cfg.RequiredIdentifiers, policy.IdentifierField(f))
	}
	return cfg, nil
}

func unmarshalInto(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode reference column: %w", err)
	}
	return nil
}
