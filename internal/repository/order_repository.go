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

const orderColumns = `
	id, order_number, user_id,
	shipping_full_name, shipping_address, shipping_city, shipping_state, shipping_zip_code, shipping_phone,
	payment_method, payment_status, order_status,
	subtotal::text, shipping_fee::text, tax::text, total_amount::text,
	delivery_date, tracking_number, created_at, updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	tx     TxManager
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		tx:     NewTxManager(pool, logger),
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

func scanOrder(row scanner) (*model.Order, error) {
	var (
		o                               model.Order
		subtotal, shipping, tax, amount string
	)
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.ShippingAddress.FullName,
		&o.ShippingAddress.Address,
		&o.ShippingAddress.City,
		&o.ShippingAddress.State,
		&o.ShippingAddress.ZipCode,
		&o.ShippingAddress.Phone,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.Status,
		&subtotal,
		&shipping,
		&tax,
		&amount,
		&o.DeliveryDate,
		&o.TrackingNumber,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if o.Subtotal, err = parseDecimal(subtotal); err != nil {
		return nil, err
	}
	if o.ShippingFee, err = parseDecimal(shipping); err != nil {
		return nil, err
	}
	if o.Tax, err = parseDecimal(tax); err != nil {
		return nil, err
	}
	if o.TotalAmount, err = parseDecimal(amount); err != nil {
		return nil, err
	}

	o.Items = []model.OrderItem{}
	return &o, nil
}

// Create inserts the order and its items in one transaction.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		q := conn(ctx, r.pool)

		query := `
			INSERT INTO orders (
				id, order_number, user_id,
				shipping_full_name, shipping_address, shipping_city, shipping_state, shipping_zip_code, shipping_phone,
				payment_method, payment_status, order_status,
				subtotal, shipping_fee, tax, total_amount,
				delivery_date, tracking_number, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		`

		addr := order.ShippingAddress
		_, err := q.Exec(ctx, query,
			order.ID, order.OrderNumber, order.UserID,
			addr.FullName, addr.Address, addr.City, addr.State, addr.ZipCode, addr.Phone,
			string(order.PaymentMethod), string(order.PaymentStatus), string(order.Status),
			order.Subtotal, order.ShippingFee, order.Tax, order.TotalAmount,
			order.DeliveryDate, order.TrackingNumber, order.CreatedAt, order.UpdatedAt,
		)
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Msg("failed to create order")
			return fmt.Errorf("failed to create order: %w", err)
		}

		if err := r.createItems(ctx, q, order.Items); err != nil {
			return err
		}

		r.logger.Debug().
			Str("order_id", order.ID.String()).
			Str("order_number", order.OrderNumber).
			Msg("order created successfully")

		return nil
	})
}

func (r *orderRepository) createItems(ctx context.Context, q querier, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, medicine_id, name, quantity, price, total, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for i, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.MedicineID, item.Name, item.Quantity, item.Price, item.Total, i)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("medicine_id", items[i].MedicineID.String()).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	orders := []model.Order{*order}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

// ListByUser retrieves a user's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	orders, err := r.query(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// List retrieves a page of orders and the total matching count.
func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	q := conn(ctx, r.pool)

	var total int
	countQuery := `SELECT COUNT(*) FROM orders WHERE ($1::text = '' OR order_status = $1)`
	if err := q.QueryRow(ctx, countQuery, string(filter.Status)).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count orders")
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::text = '' OR order_status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	orders, err := r.query(ctx, query, string(filter.Status), filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// UpdateStatus persists the mutable order fields when the stored status
// still equals expected.
func (r *orderRepository) UpdateStatus(ctx context.Context, order *model.Order, expected model.OrderStatus) (bool, error) {
	query := `
		UPDATE orders
		SET order_status = $2, payment_status = $3, tracking_number = $4, delivery_date = $5, updated_at = $6
		WHERE id = $1 AND order_status = $7
	`

	tag, err := conn(ctx, r.pool).Exec(ctx, query,
		order.ID,
		string(order.Status),
		string(order.PaymentStatus),
		order.TrackingNumber,
		order.DeliveryDate,
		order.UpdatedAt,
		string(expected),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order")
		return false, fmt.Errorf("failed to update order: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *orderRepository) query(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// attachItems loads the items of every order in one query.
func (r *orderRepository) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	query := `
		SELECT id, order_id, medicine_id, name, quantity, price::text, total::text
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("order_count", len(ids)).Msg("failed to query order items")
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item         model.OrderItem
			price, total string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MedicineID, &item.Name, &item.Quantity, &price, &total); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if item.Price, err = parseDecimal(price); err != nil {
			return err
		}
		if item.Total, err = parseDecimal(total); err != nil {
			return err
		}

		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return fmt.Errorf("error iterating order items: %w", err)
	}

	return nil
}
