package service

import (
	"context"
	"fmt"
	"time"

	"medi-kart/internal/auth"
	"medi-kart/internal/model"
	"medi-kart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var errCombinedStock = model.NewDomainError(model.KindInsufficientStock, model.ErrCodeInsufficientStock,
	"Insufficient stock for requested quantity")

// cartService implements CartService.
type cartService struct {
	tx        repository.TxManager
	carts     repository.CartRepository
	medicines repository.MedicineRepository
	policy    *auth.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(
	tx repository.TxManager,
	carts repository.CartRepository,
	medicines repository.MedicineRepository,
	policy *auth.Policy,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		tx:        tx,
		carts:     carts,
		medicines: medicines,
		policy:    policy,
		logger:    logger.With().Str("service", "cart").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the caller's cart, or an empty view when none exists.
func (s *cartService) Get(ctx context.Context, principal model.Principal) (*model.CartResponse, error) {
	if err := s.policy.Authorize(auth.OpManageCart, principal); err != nil {
		return nil, err
	}

	cart, err := s.carts.GetByUser(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return s.view(ctx, cart)
}

// AddItem adds quantity units of a medicine, merging with an existing line.
func (s *cartService) AddItem(ctx context.Context, principal model.Principal, req *model.AddCartItemRequest) (*model.CartResponse, error) {
	if err := s.policy.Authorize(auth.OpManageCart, principal); err != nil {
		return nil, err
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity < 1 {
		return nil, model.ErrInvalidQuantity
	}

	medicineID, err := uuid.Parse(req.MedicineID)
	if err != nil {
		return nil, model.ErrMedicineNotFound
	}

	var cart *model.Cart
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		medicine, err := s.medicines.GetByID(ctx, medicineID)
		if err != nil {
			return fmt.Errorf("failed to get medicine: %w", err)
		}
		if medicine == nil {
			return model.ErrMedicineNotFound
		}
		if quantity > medicine.Stock {
			return model.ErrInsufficientStock
		}

		cart, err = s.carts.GetByUser(ctx, principal.UserID)
		if err != nil {
			return fmt.Errorf("failed to get cart: %w", err)
		}

		now := s.now()
		if cart == nil {
			cart = &model.Cart{
				ID:        uuid.New(),
				UserID:    principal.UserID,
				Items:     []model.CartItem{},
				CreatedAt: now,
			}
		}

		if i := cart.IndexOfMedicine(medicineID); i >= 0 {
			combined := cart.Items[i].Quantity + quantity
			if combined > medicine.Stock {
				return errCombinedStock
			}
			cart.Items[i].Quantity = combined
		} else {
			cart.Items = append(cart.Items, model.CartItem{
				ID:         uuid.New(),
				MedicineID: medicineID,
				Quantity:   quantity,
				Price:      medicine.EffectivePrice(),
			})
		}
		cart.UpdatedAt = now

		if err := s.carts.Save(ctx, cart); err != nil {
			return fmt.Errorf("failed to save cart: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logFailure(err, principal, "failed to add item to cart")
		return nil, err
	}

	s.logger.Debug().
		Str("user_id", principal.UserID.String()).
		Str("medicine_id", medicineID.String()).
		Int("quantity", quantity).
		Msg("item added to cart")

	return s.view(ctx, cart)
}

// UpdateItem replaces the quantity of a cart line.
func (s *cartService) UpdateItem(ctx context.Context, principal model.Principal, itemID string, quantity int) (*model.CartResponse, error) {
	if err := s.policy.Authorize(auth.OpManageCart, principal); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, model.ErrInvalidQuantity
	}

	var cart *model.Cart
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		cart, err = s.carts.GetByUser(ctx, principal.UserID)
		if err != nil {
			return fmt.Errorf("failed to get cart: %w", err)
		}
		if cart == nil {
			return model.ErrCartNotFound
		}

		id, err := uuid.Parse(itemID)
		if err != nil {
			return model.ErrCartItemNotFound
		}
		i := cart.IndexOfItem(id)
		if i < 0 {
			return model.ErrCartItemNotFound
		}

		medicine, err := s.medicines.GetByID(ctx, cart.Items[i].MedicineID)
		if err != nil {
			return fmt.Errorf("failed to get medicine: %w", err)
		}
		if medicine == nil {
			return model.ErrMedicineNotFound
		}
		if quantity > medicine.Stock {
			return model.ErrInsufficientStock
		}

		cart.Items[i].Quantity = quantity
		cart.UpdatedAt = s.now()

		if err := s.carts.Save(ctx, cart); err != nil {
			return fmt.Errorf("failed to save cart: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logFailure(err, principal, "failed to update cart item")
		return nil, err
	}

	return s.view(ctx, cart)
}

// RemoveItem drops a cart line. Removing an absent line is not an error.
func (s *cartService) RemoveItem(ctx context.Context, principal model.Principal, itemID string) (*model.CartResponse, error) {
	if err := s.policy.Authorize(auth.OpManageCart, principal); err != nil {
		return nil, err
	}

	var cart *model.Cart
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		cart, err = s.carts.GetByUser(ctx, principal.UserID)
		if err != nil {
			return fmt.Errorf("failed to get cart: %w", err)
		}
		if cart == nil {
			return nil
		}

		id, err := uuid.Parse(itemID)
		if err != nil {
			return nil
		}
		i := cart.IndexOfItem(id)
		if i < 0 {
			return nil
		}

		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		cart.UpdatedAt = s.now()

		if err := s.carts.Save(ctx, cart); err != nil {
			return fmt.Errorf("failed to save cart: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logFailure(err, principal, "failed to remove cart item")
		return nil, err
	}

	return s.view(ctx, cart)
}

// Clear empties the caller's cart.
func (s *cartService) Clear(ctx context.Context, principal model.Principal) (*model.CartResponse, error) {
	if err := s.policy.Authorize(auth.OpManageCart, principal); err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, principal.UserID); err != nil {
		s.logger.Error().Err(err).Str("user_id", principal.UserID.String()).Msg("failed to clear cart")
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	return s.Get(ctx, principal)
}

// view expands each line with its medicine summary.
func (s *cartService) view(ctx context.Context, cart *model.Cart) (*model.CartResponse, error) {
	if cart == nil || len(cart.Items) == 0 {
		return model.NewCartResponse(cart), nil
	}

	ids := make([]uuid.UUID, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.MedicineID
	}

	medicines, err := s.medicines.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart medicines: %w", err)
	}

	byID := make(map[uuid.UUID]*model.Medicine, len(medicines))
	for i := range medicines {
		byID[medicines[i].ID] = &medicines[i]
	}
	for i := range cart.Items {
		if m, ok := byID[cart.Items[i].MedicineID]; ok {
			cart.Items[i].Medicine = m.Summary()
		}
	}

	return model.NewCartResponse(cart), nil
}

func (s *cartService) logFailure(err error, principal model.Principal, msg string) {
	if model.KindOf(err) != model.KindInternal {
		s.logger.Debug().Err(err).Str("user_id", principal.UserID.String()).Msg(msg)
		return
	}
	s.logger.Error().Err(err).Str("user_id", principal.UserID.String()).Msg(msg)
}
