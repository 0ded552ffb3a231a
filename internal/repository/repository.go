package repository

import (
	"context"

	"medi-kart/internal/model"

	"github.com/google/uuid"
)

// TxManager runs a function inside a single unit of work. Repositories
// called with the context passed to fn join that unit of work, and every
// write is rolled back when fn returns an error.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// MedicineRepository defines the interface for catalog data access operations.
type MedicineRepository interface {
	// List retrieves medicines matching the filter, newest first.
	List(ctx context.Context, filter model.MedicineFilter) ([]model.Medicine, error)

	// Count returns the number of medicines matching the filter, ignoring paging.
	Count(ctx context.Context, filter model.MedicineFilter) (int, error)

	// GetByID retrieves a single medicine. Returns nil, nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Medicine, error)

	// GetByIDs retrieves the medicines that exist among ids.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Medicine, error)

	// Create inserts a new medicine.
	Create(ctx context.Context, medicine *model.Medicine) error

	// DecrementStock subtracts quantity only when at least quantity units are
	// in stock. It reports whether the decrement was applied.
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error)

	// IncrementStock adds quantity back. It reports whether the medicine exists.
	IncrementStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error)
}

// CartRepository defines the interface for cart data access operations.
type CartRepository interface {
	// GetByUser retrieves the user's cart. Returns nil, nil when absent.
	// Called inside WithinTx, the cart stays locked until the transaction ends.
	GetByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error)

	// Save creates or replaces the cart and all its lines.
	Save(ctx context.Context, cart *model.Cart) error

	// Clear removes every line from the user's cart.
	Clear(ctx context.Context, userID uuid.UUID) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// Create inserts the order and its items.
	Create(ctx context.Context, order *model.Order) error

	// GetByID retrieves an order with its items. Returns nil, nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListByUser retrieves a user's orders, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error)

	// List retrieves a page of orders, newest first, and the total matching count.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error)

	// UpdateStatus persists the status, payment status, tracking number and
	// delivery date of order, provided its stored status still equals
	// expected. It reports whether the update was applied.
	UpdateStatus(ctx context.Context, order *model.Order, expected model.OrderStatus) (bool, error)
}

// PrescriptionRepository defines the interface for prescription request data access.
type PrescriptionRepository interface {
	// Create inserts a new request.
	Create(ctx context.Context, req *model.PrescriptionRequest) error

	// GetByID retrieves a request. Returns nil, nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.PrescriptionRequest, error)

	// ListByPatient retrieves a patient's requests, newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.PrescriptionRequest, error)

	// List retrieves a page of requests, newest first, and the total matching count.
	List(ctx context.Context, filter model.PrescriptionFilter) ([]model.PrescriptionRequest, int, error)

	// Update persists the mutable fields of req, provided its stored status
	// still equals expected. It reports whether the update was applied.
	Update(ctx context.Context, req *model.PrescriptionRequest, expected model.PrescriptionStatus) (bool, error)
}

// UserRepository defines the interface for account data access.
type UserRepository interface {
	// Create inserts a user. Returns model.ErrUserExists when the email is taken.
	Create(ctx context.Context, user *model.User) error

	// GetByID retrieves a user. Returns nil, nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	// GetByEmail retrieves a user by email. Returns nil, nil when absent.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}
