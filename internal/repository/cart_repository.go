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

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	tx     TxManager
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		tx:     NewTxManager(pool, logger),
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// GetByUser retrieves the user's cart with its lines in insertion order.
// Inside a transaction the cart row stays locked until commit.
func (r *cartRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	q := conn(ctx, r.pool)

	cartQuery := `
		SELECT id, user_id, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	` + lockClause(ctx)

	var cart model.Cart
	err := q.QueryRow(ctx, cartQuery, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("user_id", userID.String()).Msg("cart not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	itemsQuery := `
		SELECT id, medicine_id, quantity, price::text
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY position
	`

	rows, err := q.Query(ctx, itemsQuery, cart.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cart.ID.String()).Msg("failed to query cart items")
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	cart.Items = []model.CartItem{}
	for rows.Next() {
		var (
			item  model.CartItem
			price string
		)
		if err := rows.Scan(&item.ID, &item.MedicineID, &item.Quantity, &price); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart item row")
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		if item.Price, err = parseDecimal(price); err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart item rows")
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return &cart, nil
}

// Save upserts the cart row and replaces its lines atomically.
func (r *cartRepository) Save(ctx context.Context, cart *model.Cart) error {
	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		q := conn(ctx, r.pool)

		upsert := `
			INSERT INTO carts (id, user_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
			RETURNING id
		`
		var storedID uuid.UUID
		if err := q.QueryRow(ctx, upsert, cart.ID, cart.UserID, cart.CreatedAt, cart.UpdatedAt).Scan(&storedID); err != nil {
			r.logger.Error().Err(err).Str("cart_id", cart.ID.String()).Msg("failed to upsert cart")
			return fmt.Errorf("failed to save cart: %w", err)
		}
		if storedID != cart.ID {
			// another request created this user's cart after our read
			r.logger.Warn().Str("user_id", cart.UserID.String()).Msg("cart created concurrently")
			return model.ErrCartConflict
		}

		if _, err := q.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
			r.logger.Error().Err(err).Str("cart_id", cart.ID.String()).Msg("failed to delete cart items")
			return fmt.Errorf("failed to save cart items: %w", err)
		}

		if len(cart.Items) == 0 {
			return nil
		}

		insert := `
			INSERT INTO cart_items (id, cart_id, medicine_id, quantity, price, position)
			VALUES ($1, $2, $3, $4, $5, $6)
		`

		batch := &pgx.Batch{}
		for i, item := range cart.Items {
			batch.Queue(insert, item.ID, cart.ID, item.MedicineID, item.Quantity, item.Price, i)
		}

		results := q.SendBatch(ctx, batch)
		defer results.Close()

		for i := 0; i < len(cart.Items); i++ {
			if _, err := results.Exec(); err != nil {
				r.logger.Error().
					Err(err).
					Str("cart_id", cart.ID.String()).
					Str("medicine_id", cart.Items[i].MedicineID.String()).
					Msg("failed to insert cart item")
				return fmt.Errorf("failed to save cart item: %w", err)
			}
		}

		r.logger.Debug().
			Str("cart_id", cart.ID.String()).
			Int("count", len(cart.Items)).
			Msg("cart saved successfully")

		return nil
	})
}

// Clear removes every line from the user's cart.
func (r *cartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	query := `
		DELETE FROM cart_items
		WHERE cart_id IN (SELECT id FROM carts WHERE user_id = $1)
	`

	q := conn(ctx, r.pool)
	if _, err := q.Exec(ctx, query, userID); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	if _, err := q.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE user_id = $1`, userID); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to touch cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}
