package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"medi-kart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const prescriptionColumns = `
	id, patient_id, symptoms, description, images, status, pharmacist_notes,
	suggested_medicines, responded_by, responded_at, created_at, updated_at`

// prescriptionRepository implements the PrescriptionRepository interface using PostgreSQL.
type prescriptionRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPrescriptionRepository creates a new PostgreSQL-backed prescription repository.
func NewPrescriptionRepository(pool *pgxpool.Pool, logger zerolog.Logger) PrescriptionRepository {
	return &prescriptionRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "prescription").Logger(),
	}
}

func scanPrescription(row scanner) (*model.PrescriptionRequest, error) {
	var (
		p         model.PrescriptionRequest
		suggested []byte
	)
	err := row.Scan(
		&p.ID,
		&p.PatientID,
		&p.Symptoms,
		&p.Description,
		&p.Images,
		&p.Status,
		&p.PharmacistNotes,
		&suggested,
		&p.RespondedBy,
		&p.RespondedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.SuggestedMedicines = []model.SuggestedMedicine{}
	if len(suggested) > 0 {
		if err := json.Unmarshal(suggested, &p.SuggestedMedicines); err != nil {
			return nil, fmt.Errorf("failed to decode suggested medicines: %w", err)
		}
	}
	if p.Images == nil {
		p.Images = []string{}
	}

	return &p, nil
}

func encodeSuggested(meds []model.SuggestedMedicine) ([]byte, error) {
	if meds == nil {
		meds = []model.SuggestedMedicine{}
	}
	data, err := json.Marshal(meds)
	if err != nil {
		return nil, fmt.Errorf("failed to encode suggested medicines: %w", err)
	}
	return data, nil
}

// Create inserts a new prescription request.
func (r *prescriptionRepository) Create(ctx context.Context, req *model.PrescriptionRequest) error {
	suggested, err := encodeSuggested(req.SuggestedMedicines)
	if err != nil {
		return err
	}

	images := req.Images
	if images == nil {
		images = []string{}
	}

	query := `
		INSERT INTO prescription_requests (` + prescriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = conn(ctx, r.pool).Exec(ctx, query,
		req.ID, req.PatientID, req.Symptoms, req.Description, images, string(req.Status), req.PharmacistNotes,
		suggested, req.RespondedBy, req.RespondedAt, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("prescription_id", req.ID.String()).Msg("failed to create prescription request")
		return fmt.Errorf("failed to create prescription request: %w", err)
	}

	r.logger.Debug().Str("prescription_id", req.ID.String()).Msg("prescription request created successfully")
	return nil
}

// GetByID retrieves a prescription request by its ID.
func (r *prescriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PrescriptionRequest, error) {
	query := `SELECT ` + prescriptionColumns + ` FROM prescription_requests WHERE id = $1`

	p, err := scanPrescription(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("prescription_id", id.String()).Msg("prescription request not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("prescription_id", id.String()).Msg("failed to query prescription request")
		return nil, fmt.Errorf("failed to query prescription request: %w", err)
	}

	return p, nil
}

// ListByPatient retrieves a patient's requests, newest first.
func (r *prescriptionRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.PrescriptionRequest, error) {
	query := `
		SELECT ` + prescriptionColumns + `
		FROM prescription_requests
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`

	return r.query(ctx, query, patientID)
}

// List retrieves a page of requests and the total matching count.
func (r *prescriptionRepository) List(ctx context.Context, filter model.PrescriptionFilter) ([]model.PrescriptionRequest, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM prescription_requests WHERE ($1::text = '' OR status = $1)`
	if err := conn(ctx, r.pool).QueryRow(ctx, countQuery, string(filter.Status)).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count prescription requests")
		return nil, 0, fmt.Errorf("failed to count prescription requests: %w", err)
	}

	query := `
		SELECT ` + prescriptionColumns + `
		FROM prescription_requests
		WHERE ($1::text = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	requests, err := r.query(ctx, query, string(filter.Status), filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// Update persists the mutable request fields when the stored status still
// equals expected.
func (r *prescriptionRepository) Update(ctx context.Context, req *model.PrescriptionRequest, expected model.PrescriptionStatus) (bool, error) {
	suggested, err := encodeSuggested(req.SuggestedMedicines)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE prescription_requests
		SET status = $2, pharmacist_notes = $3, suggested_medicines = $4,
		    responded_by = $5, responded_at = $6, updated_at = $7
		WHERE id = $1 AND status = $8
	`

	tag, err := conn(ctx, r.pool).Exec(ctx, query,
		req.ID, string(req.Status), req.PharmacistNotes, suggested,
		req.RespondedBy, req.RespondedAt, req.UpdatedAt, string(expected),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("prescription_id", req.ID.String()).Msg("failed to update prescription request")
		return false, fmt.Errorf("failed to update prescription request: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *prescriptionRepository) query(ctx context.Context, query string, args ...any) ([]model.PrescriptionRequest, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query prescription requests")
		return nil, fmt.Errorf("failed to query prescription requests: %w", err)
	}
	defer rows.Close()

	requests := []model.PrescriptionRequest{}
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan prescription request row")
			return nil, fmt.Errorf("failed to scan prescription request: %w", err)
		}
		requests = append(requests, *p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating prescription request rows")
		return nil, fmt.Errorf("error iterating prescription requests: %w", err)
	}

	return requests, nil
}
