// internal/store/patients.go
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/meditrek/clinpilot/api/schemas"
)

// ErrPatientNotFound is returned when no record exists for the identifier.
var ErrPatientNotFound = errors.New("patient not found")

// Querier is the narrow read surface the store needs. *pgxpool.Pool
// satisfies it in production; pgxmock satisfies it in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PatientStore assembles read-only ClinicalContext snapshots from the
// hospital record database. It never writes; persistence of analysis results
// is someone else's concern.
type PatientStore struct {
	db     Querier
	logger *zap.Logger
}

// New builds the store.
func New(db Querier, logger *zap.Logger) *PatientStore {
	return &PatientStore{db: db, logger: logger.Named("patient_store")}
}

const patientQuery = `
SELECT age, sex, bmi, smoking_status, comorbidities
FROM patients
WHERE tckn = $1`

const complaintsQuery = `
SELECT complaint
FROM visit_complaints
WHERE tckn = $1
ORDER BY recorded_at DESC
LIMIT 20`

const labsQuery = `
SELECT test_name, value, unit, reference_low, reference_high, extract(epoch FROM observed_at)::bigint
FROM lab_results
WHERE tckn = $1 AND observed_at > now() - interval '6 months'
ORDER BY test_name, observed_at`

const historyQuery = `
SELECT kind, item
FROM patient_history
WHERE tckn = $1 AND kind IN ('diagnosis', 'medication', 'allergy')
ORDER BY recorded_at`

// GetClinicalContext loads everything the engines need for one patient. The
// returned snapshot is owned by the caller; the store keeps no reference.
func (s *PatientStore) GetClinicalContext(ctx context.Context, tckn string) (*schemas.ClinicalContext, error) {
	cc := &schemas.ClinicalContext{PatientID: tckn}

	row := s.db.QueryRow(ctx, patientQuery, tckn)
	if err := row.Scan(
		&cc.Demographics.Age,
		&cc.Demographics.Sex,
		&cc.Demographics.BMI,
		&cc.Demographics.SmokingStatus,
		&cc.Demographics.Comorbidities,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("failed to load patient %s: %w", tckn, err)
	}

	if err := s.loadComplaints(ctx, tckn, cc); err != nil {
		return nil, err
	}
	if err := s.loadLabs(ctx, tckn, cc); err != nil {
		return nil, err
	}
	if err := s.loadHistory(ctx, tckn, cc); err != nil {
		return nil, err
	}

	s.logger.Debug("Clinical context assembled",
		zap.String("patient_id", tckn),
		zap.Int("complaints", len(cc.ChiefComplaints)),
		zap.Int("lab_series", len(cc.LabResults)),
	)
	return cc, nil
}

func (s *PatientStore) loadComplaints(ctx context.Context, tckn string, cc *schemas.ClinicalContext) error {
	rows, err := s.db.Query(ctx, complaintsQuery, tckn)
	if err != nil {
		return fmt.Errorf("failed to load complaints for %s: %w", tckn, err)
	}
	defer rows.Close()

	for rows.Next() {
		var complaint string
		if err := rows.Scan(&complaint); err != nil {
			return fmt.Errorf("failed to scan complaint: %w", err)
		}
		cc.ChiefComplaints = append(cc.ChiefComplaints, complaint)
	}
	return rows.Err()
}

func (s *PatientStore) loadLabs(ctx context.Context, tckn string, cc *schemas.ClinicalContext) error {
	rows, err := s.db.Query(ctx, labsQuery, tckn)
	if err != nil {
		return fmt.Errorf("failed to load labs for %s: %w", tckn, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var lr schemas.LabResult
		if err := rows.Scan(&name, &lr.Value, &lr.Unit, &lr.ReferenceLow, &lr.ReferenceHigh, &lr.ObservedAtUnix); err != nil {
			return fmt.Errorf("failed to scan lab result: %w", err)
		}
		if cc.LabResults == nil {
			cc.LabResults = make(map[string][]schemas.LabResult)
		}
		cc.LabResults[name] = append(cc.LabResults[name], lr)
	}
	return rows.Err()
}

func (s *PatientStore) loadHistory(ctx context.Context, tckn string, cc *schemas.ClinicalContext) error {
	rows, err := s.db.Query(ctx, historyQuery, tckn)
	if err != nil {
		return fmt.Errorf("failed to load history for %s: %w", tckn, err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, item string
		if err := rows.Scan(&kind, &item); err != nil {
			return fmt.Errorf("failed to scan history entry: %w", err)
		}
		switch kind {
		case "diagnosis":
			cc.PastDiagnoses = append(cc.PastDiagnoses, item)
		case "medication":
			cc.Medications = append(cc.Medications, item)
		case "allergy":
			cc.Allergies = append(cc.Allergies, item)
		}
	}
	return rows.Err()
}
