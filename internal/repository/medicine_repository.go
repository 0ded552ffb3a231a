package repository

import (
	"context"
	"errors"
	"fmt"

	"medi-kart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const medicineColumns = `
	id, name, usage, category, manufacturer, dosage, price::text, discount_price::text,
	currency, stock, image_url, side_effects, expiry_date, created_at, updated_at`

// medicineRepository implements the MedicineRepository interface using PostgreSQL.
type medicineRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewMedicineRepository creates a new PostgreSQL-backed medicine repository.
func NewMedicineRepository(pool *pgxpool.Pool, logger zerolog.Logger) MedicineRepository {
	return &medicineRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "medicine").Logger(),
	}
}

func scanMedicine(row scanner) (*model.Medicine, error) {
	var (
		m        model.Medicine
		price    string
		discount *string
	)
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Usage,
		&m.Category,
		&m.Manufacturer,
		&m.Dosage,
		&price,
		&discount,
		&m.Currency,
		&m.Stock,
		&m.ImageURL,
		&m.SideEffects,
		&m.ExpiryDate,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if m.Price, err = parseDecimal(price); err != nil {
		return nil, err
	}
	if m.DiscountPrice, err = parseNullDecimal(discount); err != nil {
		return nil, err
	}

	return &m, nil
}

func (r *medicineRepository) collect(rows pgx.Rows) ([]model.Medicine, error) {
	defer rows.Close()

	medicines := []model.Medicine{}
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan medicine row")
			return nil, fmt.Errorf("failed to scan medicine: %w", err)
		}
		medicines = append(medicines, *m)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating medicine rows")
		return nil, fmt.Errorf("error iterating medicines: %w", err)
	}

	return medicines, nil
}

// List retrieves medicines matching the filter, newest first.
func (r *medicineRepository) List(ctx context.Context, filter model.MedicineFilter) ([]model.Medicine, error) {
	query := `
		SELECT ` + medicineColumns + `
		FROM medicines
		WHERE ($1::text = '' OR category = $1)
		  AND ($2::text = '' OR name ILIKE '%' || $2 || '%' OR usage ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC, name
		LIMIT $3 OFFSET $4
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query, filter.Category, filter.Search, filter.Limit, filter.Offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", filter.Limit).
			Int("offset", filter.Offset).
			Msg("failed to query medicines")
		return nil, fmt.Errorf("failed to query medicines: %w", err)
	}

	return r.collect(rows)
}

// Count returns the number of medicines matching the filter.
func (r *medicineRepository) Count(ctx context.Context, filter model.MedicineFilter) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM medicines
		WHERE ($1::text = '' OR category = $1)
		  AND ($2::text = '' OR name ILIKE '%' || $2 || '%' OR usage ILIKE '%' || $2 || '%')
	`

	var count int
	if err := conn(ctx, r.pool).QueryRow(ctx, query, filter.Category, filter.Search).Scan(&count); err != nil {
		r.logger.Error().Err(err).Msg("failed to count medicines")
		return 0, fmt.Errorf("failed to count medicines: %w", err)
	}

	return count, nil
}

// GetByID retrieves a single medicine by its ID.
func (r *medicineRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE id = $1`

	m, err := scanMedicine(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("medicine_id", id.String()).Msg("medicine not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("medicine_id", id.String()).Msg("failed to query medicine")
		return nil, fmt.Errorf("failed to query medicine: %w", err)
	}

	return m, nil
}

// GetByIDs retrieves multiple medicines by their IDs.
func (r *medicineRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Medicine, error) {
	if len(ids) == 0 {
		return []model.Medicine{}, nil
	}

	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE id = ANY($1) ORDER BY name`

	rows, err := conn(ctx, r.pool).Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query medicines by IDs")
		return nil, fmt.Errorf("failed to query medicines by IDs: %w", err)
	}

	return r.collect(rows)
}

// Create inserts a new medicine.
func (r *medicineRepository) Create(ctx context.Context, m *model.Medicine) error {
	query := `
		INSERT INTO medicines (
			id, name, usage, category, manufacturer, dosage, price, discount_price,
			currency, stock, image_url, side_effects, expiry_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	sideEffects := m.SideEffects
	if sideEffects == nil {
		sideEffects = []string{}
	}

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		m.ID, m.Name, m.Usage, m.Category, m.Manufacturer, m.Dosage, m.Price, m.DiscountPrice,
		m.Currency, m.Stock, m.ImageURL, sideEffects, m.ExpiryDate, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("medicine_id", m.ID.String()).Msg("failed to create medicine")
		return fmt.Errorf("failed to create medicine: %w", err)
	}

	r.logger.Debug().Str("medicine_id", m.ID.String()).Msg("medicine created successfully")
	return nil
}

// DecrementStock subtracts quantity when enough stock remains.
func (r *medicineRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	query := `
		UPDATE medicines
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`

	tag, err := conn(ctx, r.pool).Exec(ctx, query, id, quantity)
	if err != nil {
		r.logger.Error().Err(err).Str("medicine_id", id.String()).Int("quantity", quantity).Msg("failed to decrement stock")
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// IncrementStock adds quantity back to stock.
func (r *medicineRepository) IncrementStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	query := `
		UPDATE medicines
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := conn(ctx, r.pool).Exec(ctx, query, id, quantity)
	if err != nil {
		r.logger.Error().Err(err).Str("medicine_id", id.String()).Int("quantity", quantity).Msg("failed to increment stock")
		return false, fmt.Errorf("failed to increment stock: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
