package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medi-kart/internal/auth"
	"medi-kart/internal/events"
	"medi-kart/internal/metrics"
	"medi-kart/internal/model"
	"medi-kart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// orderService implements OrderService.
type orderService struct {
	tx        repository.TxManager
	orders    repository.OrderRepository
	medicines repository.MedicineRepository
	carts     repository.CartRepository
	publisher events.Publisher
	policy    *auth.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(
	tx repository.TxManager,
	orders repository.OrderRepository,
	medicines repository.MedicineRepository,
	carts repository.CartRepository,
	publisher events.Publisher,
	policy *auth.Policy,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		tx:        tx,
		orders:    orders,
		medicines: medicines,
		carts:     carts,
		publisher: publisher,
		policy:    policy,
		logger:    logger.With().Str("service", "order").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// orderLine is a requested medicine and quantity, resolved to an ID.
type orderLine struct {
	medicineID uuid.UUID
	quantity   int
}

// Place creates an order and reserves stock for every line in one transaction.
func (s *orderService) Place(ctx context.Context, principal model.Principal, req *model.PlaceOrderRequest) (order *model.Order, err error) {
	defer func() { metrics.RecordOrderOperation(metrics.OpPlaceOrder, err) }()

	if err := s.policy.Authorize(auth.OpPlaceOrder, principal); err != nil {
		return nil, err
	}

	requested, err := s.validatePlaceRequest(req)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lines := requested
		fromCart := len(lines) == 0
		if fromCart {
			cartLines, err := s.cartLines(ctx, principal.UserID)
			if err != nil {
				return err
			}
			lines = cartLines
		}

		now := s.now()
		order = &model.Order{
			ID:              uuid.New(),
			OrderNumber:     model.NewOrderNumber(now),
			UserID:          principal.UserID,
			Items:           make([]model.OrderItem, 0, len(lines)),
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
			PaymentStatus:   model.PaymentStatusPending,
			Status:          model.OrderStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		subtotal := decimal.Zero
		for _, line := range lines {
			item, err := s.reserve(ctx, line)
			if err != nil {
				return err
			}
			item.OrderID = order.ID
			order.Items = append(order.Items, *item)
			subtotal = subtotal.Add(item.Total)
		}
		order.ApplyTotals(model.ComputeTotals(subtotal))

		if err := s.orders.Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		if fromCart {
			if err := s.carts.Clear(ctx, principal.UserID); err != nil {
				return fmt.Errorf("failed to clear cart: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logFailure(err, "failed to place order", principal.UserID, "")
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Int("item_count", len(order.Items)).
		Str("total_amount", order.TotalAmount.StringFixed(2)).
		Msg("order placed")

	s.publish(ctx, events.OrderCreated, order)
	return order, nil
}

// reserve snapshots a line at the medicine's effective price and takes its
// quantity out of stock with a conditional decrement.
func (s *orderService) reserve(ctx context.Context, line orderLine) (*model.OrderItem, error) {
	medicine, err := s.medicines.GetByID(ctx, line.medicineID)
	if err != nil {
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}
	if medicine == nil {
		return nil, model.NewMedicineNotFoundError(line.medicineID)
	}
	if medicine.Stock < line.quantity {
		return nil, model.NewInsufficientStockError(medicine.Name)
	}

	applied, err := s.medicines.DecrementStock(ctx, medicine.ID, line.quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}
	if !applied {
		// stock changed between the read and the write
		return nil, model.NewInsufficientStockError(medicine.Name)
	}

	price := medicine.EffectivePrice()
	return &model.OrderItem{
		ID:         uuid.New(),
		MedicineID: medicine.ID,
		Name:       medicine.Name,
		Quantity:   line.quantity,
		Price:      price,
		Total:      model.LineTotal(price, line.quantity),
	}, nil
}

func (s *orderService) cartLines(ctx context.Context, userID uuid.UUID) ([]orderLine, error) {
	cart, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, model.ErrEmptyCart
	}

	lines := make([]orderLine, len(cart.Items))
	for i, item := range cart.Items {
		lines[i] = orderLine{medicineID: item.MedicineID, quantity: item.Quantity}
	}
	return lines, nil
}

func (s *orderService) validatePlaceRequest(req *model.PlaceOrderRequest) ([]orderLine, error) {
	if req == nil {
		return nil, model.NewValidationError("Order details are required")
	}
	if missing := req.ShippingAddress.MissingFields(); len(missing) > 0 {
		return nil, model.NewValidationError("Shipping address is missing: %s", strings.Join(missing, ", "))
	}
	if !req.PaymentMethod.Valid() {
		return nil, model.NewValidationError("Invalid payment method: %q", req.PaymentMethod)
	}

	lines := make([]orderLine, 0, len(req.CartItems))
	for i, item := range req.CartItems {
		if strings.TrimSpace(item.MedicineID) == "" {
			return nil, model.NewValidationError("Item %d: medicineId is required", i+1)
		}
		id, err := uuid.Parse(item.MedicineID)
		if err != nil {
			return nil, model.NewDomainError(model.KindNotFound, model.ErrCodeMedicineNotFound,
				"Medicine not found: "+item.MedicineID)
		}
		if item.Quantity < 1 {
			return nil, model.ErrInvalidQuantity
		}
		lines = append(lines, orderLine{medicineID: id, quantity: item.Quantity})
	}

	return lines, nil
}

// ListForUser retrieves the caller's orders, newest first.
func (s *orderService) ListForUser(ctx context.Context, principal model.Principal) ([]model.Order, error) {
	if err := s.policy.Authorize(auth.OpListOwnOrders, principal); err != nil {
		return nil, err
	}

	orders, err := s.orders.ListByUser(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListAll retrieves a page of orders, optionally filtered by status.
func (s *orderService) ListAll(ctx context.Context, principal model.Principal, query model.ListQuery) (result *model.OrderPage, err error) {
	defer func() { metrics.RecordOrderOperation(metrics.OpListOrders, err) }()

	if err := s.policy.Authorize(auth.OpListAllOrders, principal); err != nil {
		return nil, err
	}

	var status model.OrderStatus
	if query.Status != "" && query.Status != "all" {
		status = model.OrderStatus(query.Status)
		if !status.Valid() {
			return nil, model.NewValidationError("Invalid order status: %q", query.Status)
		}
	}

	page, limit, offset := normalisePage(query.Page, query.Limit)
	orders, total, err := s.orders.List(ctx, model.OrderFilter{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return &model.OrderPage{
		Orders: orders,
		Total:  total,
		Page:   page,
		Pages:  model.Pages(total, limit),
		Limit:  limit,
	}, nil
}

// Get retrieves an order owned by the caller, or any order for administrators.
func (s *orderService) Get(ctx context.Context, principal model.Principal, id string) (*model.Order, error) {
	if err := s.policy.Authorize(auth.OpViewOrder, principal); err != nil {
		return nil, err
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.UserID != principal.UserID && !s.policy.Allows(auth.OpViewAnyOrder, principal.Role) {
		return nil, model.ErrAccessDenied
	}
	return order, nil
}

// Cancel moves the caller's pending order to cancelled and puts its stock back.
func (s *orderService) Cancel(ctx context.Context, principal model.Principal, id string) (order *model.Order, err error) {
	defer func() { metrics.RecordOrderOperation(metrics.OpCancelOrder, err) }()

	if err := s.policy.Authorize(auth.OpCancelOrder, principal); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		loaded, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		order = loaded
		if order.UserID != principal.UserID {
			return model.ErrAccessDenied
		}
		if order.Status != model.OrderStatusPending {
			return model.ErrOrderNotCancellable
		}

		order.Status = model.OrderStatusCancelled
		order.UpdatedAt = s.now()
		applied, err := s.orders.UpdateStatus(ctx, order, model.OrderStatusPending)
		if err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}
		if !applied {
			return model.ErrOrderNotCancellable
		}

		return s.restock(ctx, order)
	})
	if err != nil {
		s.logFailure(err, "failed to cancel order", principal.UserID, id)
		return nil, err
	}

	s.logger.Info().Str("order_id", order.ID.String()).Msg("order cancelled")
	s.publish(ctx, events.OrderCancelled, order)
	return order, nil
}

// restock returns every line's quantity to stock. Lines whose medicine has
// since been removed from the catalog are skipped.
func (s *orderService) restock(ctx context.Context, order *model.Order) error {
	for _, item := range order.Items {
		applied, err := s.medicines.IncrementStock(ctx, item.MedicineID, item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
		if !applied {
			s.logger.Warn().
				Str("order_id", order.ID.String()).
				Str("medicine_id", item.MedicineID.String()).
				Int("quantity", item.Quantity).
				Msg("medicine no longer exists, stock not restored")
		}
	}
	return nil
}

// UpdateStatus applies an administrator status change.
func (s *orderService) UpdateStatus(ctx context.Context, principal model.Principal, id string, req *model.UpdateOrderStatusRequest) (order *model.Order, err error) {
	defer func() { metrics.RecordOrderOperation(metrics.OpUpdateStatus, err) }()

	if err := s.policy.Authorize(auth.OpUpdateOrderStatus, principal); err != nil {
		return nil, err
	}
	if req == nil || !req.OrderStatus.AdminSettable() {
		var value model.OrderStatus
		if req != nil {
			value = req.OrderStatus
		}
		return nil, model.NewValidationError("Invalid order status: %q", value)
	}

	order, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	expected := order.Status
	if expected == model.OrderStatusCancelled {
		return nil, model.ErrOrderCancelled
	}
	if req.OrderStatus == model.OrderStatusCancelled && expected != model.OrderStatusPending {
		return nil, model.ErrOrderNotCancellable
	}

	now := s.now()
	order.Status = req.OrderStatus
	order.UpdatedAt = now
	if req.OrderStatus == model.OrderStatusDelivered {
		order.DeliveryDate = &now
	}
	if tracking := strings.TrimSpace(req.TrackingNumber); tracking != "" {
		order.TrackingNumber = &tracking
	}

	applied, err := s.orders.UpdateStatus(ctx, order, expected)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order status")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if !applied {
		return nil, model.NewInvalidStateError("Order status changed concurrently, please retry")
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("from", string(expected)).
		Str("to", string(order.Status)).
		Msg("order status updated")

	s.publish(ctx, events.OrderStatusUpdated, order)
	return order, nil
}

func (s *orderService) load(ctx context.Context, id string) (*model.Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, model.ErrOrderNotFound
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// publish sends an order event. Failures are logged and never returned.
func (s *orderService) publish(ctx context.Context, t events.EventType, order *model.Order) {
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(t, order, s.now())); err != nil {
		s.logger.Warn().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("event", string(t)).
			Msg("failed to publish order event")
	}
}

func (s *orderService) logFailure(err error, msg string, userID uuid.UUID, orderID string) {
	event := s.logger.Error()
	if model.KindOf(err) != model.KindInternal {
		event = s.logger.Warn()
	}
	event.Err(err).Str("user_id", userID.String()).Str("order_id", orderID).Msg(msg)
}
