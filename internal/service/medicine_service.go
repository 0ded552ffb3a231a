package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medi-kart/internal/auth"
	"medi-kart/internal/model"
	"medi-kart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// medicineService implements MedicineService.
type medicineService struct {
	repo   repository.MedicineRepository
	policy *auth.Policy
	logger zerolog.Logger
}

// NewMedicineService creates a new catalog service.
func NewMedicineService(repo repository.MedicineRepository, policy *auth.Policy, logger zerolog.Logger) MedicineService {
	return &medicineService{
		repo:   repo,
		policy: policy,
		logger: logger.With().Str("service", "medicine").Logger(),
	}
}

// List retrieves a page of medicines and the total matching count.
func (s *medicineService) List(ctx context.Context, filter model.MedicineFilter) ([]model.Medicine, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}
	filter.Offset = min(max(filter.Offset, 0), maxOffset)
	filter.Search = strings.TrimSpace(filter.Search)

	medicines, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list medicines")
		return nil, 0, fmt.Errorf("failed to list medicines: %w", err)
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to count medicines")
		return nil, 0, fmt.Errorf("failed to count medicines: %w", err)
	}

	return medicines, total, nil
}

// Get retrieves a single medicine by ID.
func (s *medicineService) Get(ctx context.Context, id string) (*model.Medicine, error) {
	medicineID, err := uuid.Parse(id)
	if err != nil {
		return nil, model.ErrMedicineNotFound
	}

	m, err := s.repo.GetByID(ctx, medicineID)
	if err != nil {
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}
	if m == nil {
		return nil, model.ErrMedicineNotFound
	}

	return m, nil
}

// Create validates and stores a new medicine.
func (s *medicineService) Create(ctx context.Context, principal model.Principal, req *model.CreateMedicineRequest) (*model.Medicine, error) {
	if err := s.policy.Authorize(auth.OpCreateMedicine, principal); err != nil {
		return nil, err
	}
	if err := validateMedicine(req); err != nil {
		return nil, err
	}

	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = model.DefaultCurrency
	}

	now := time.Now().UTC()
	m := &model.Medicine{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(req.Name),
		Usage:         strings.TrimSpace(req.Usage),
		Category:      strings.TrimSpace(req.Category),
		Manufacturer:  req.Manufacturer,
		Dosage:        req.Dosage,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		Currency:      currency,
		Stock:         req.Stock,
		ImageURL:      req.ImageURL,
		SideEffects:   req.SideEffects,
		ExpiryDate:    req.ExpiryDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create medicine: %w", err)
	}

	s.logger.Info().
		Str("medicine_id", m.ID.String()).
		Str("name", m.Name).
		Msg("medicine created")

	return m, nil
}

func validateMedicine(req *model.CreateMedicineRequest) error {
	if req == nil {
		return model.NewValidationError("Medicine details are required")
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Usage) == "" || strings.TrimSpace(req.Category) == "" {
		return model.NewValidationError("Name, usage and category are required")
	}
	if !req.Price.IsPositive() {
		return model.NewValidationError("Price must be greater than 0")
	}
	if req.DiscountPrice != nil && req.DiscountPrice.IsNegative() {
		return model.NewValidationError("Discount price cannot be negative")
	}
	// prices are stored as NUMERIC(12,2)
	if !hasCents(req.Price) || (req.DiscountPrice != nil && !hasCents(*req.DiscountPrice)) {
		return model.NewValidationError("Prices may have at most 2 decimal places")
	}
	if req.Stock < 0 {
		return model.NewValidationError("Stock cannot be negative")
	}
	return nil
}

func hasCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
