package service

import (
	"context"
	"math"

	"medi-kart/internal/model"
	"medi-kart/internal/storage"
)

// MedicineService defines catalog operations.
type MedicineService interface {
	// List retrieves a page of medicines and the total matching count.
	List(ctx context.Context, filter model.MedicineFilter) ([]model.Medicine, int, error)

	// Get retrieves a single medicine by ID.
	Get(ctx context.Context, id string) (*model.Medicine, error)

	// Create adds a medicine to the catalog. Administrators only.
	Create(ctx context.Context, principal model.Principal, req *model.CreateMedicineRequest) (*model.Medicine, error)
}

// CartService defines operations on the caller's cart. Every operation
// returns the resulting cart view.
type CartService interface {
	Get(ctx context.Context, principal model.Principal) (*model.CartResponse, error)
	AddItem(ctx context.Context, principal model.Principal, req *model.AddCartItemRequest) (*model.CartResponse, error)
	UpdateItem(ctx context.Context, principal model.Principal, itemID string, quantity int) (*model.CartResponse, error)
	RemoveItem(ctx context.Context, principal model.Principal, itemID string) (*model.CartResponse, error)
	Clear(ctx context.Context, principal model.Principal) (*model.CartResponse, error)
}

// OrderService defines order placement and lifecycle operations.
type OrderService interface {
	// Place creates an order from the request items, or from the caller's
	// cart when the request carries none, reserving stock atomically.
	Place(ctx context.Context, principal model.Principal, req *model.PlaceOrderRequest) (*model.Order, error)

	// ListForUser retrieves the caller's orders, newest first.
	ListForUser(ctx context.Context, principal model.Principal) ([]model.Order, error)

	// ListAll retrieves a page of all orders. Administrators only.
	ListAll(ctx context.Context, principal model.Principal, query model.ListQuery) (*model.OrderPage, error)

	// Get retrieves an order visible to the caller.
	Get(ctx context.Context, principal model.Principal, id string) (*model.Order, error)

	// Cancel cancels the caller's pending order and restores its stock.
	Cancel(ctx context.Context, principal model.Principal, id string) (*model.Order, error)

	// UpdateStatus moves an order to a new status. Administrators only.
	UpdateStatus(ctx context.Context, principal model.Principal, id string, req *model.UpdateOrderStatusRequest) (*model.Order, error)
}

// PrescriptionService defines the patient and pharmacist prescription workflow.
type PrescriptionService interface {
	Create(ctx context.Context, principal model.Principal, payload *model.CreatePrescriptionPayload, files []storage.File) (*model.PrescriptionRequest, error)
	ListForPatient(ctx context.Context, principal model.Principal) ([]model.PrescriptionRequest, error)
	ListAll(ctx context.Context, principal model.Principal, query model.ListQuery) (*model.PrescriptionPage, error)
	Get(ctx context.Context, principal model.Principal, id string) (*model.PrescriptionRequest, error)
	Respond(ctx context.Context, principal model.Principal, id string, payload *model.RespondPrescriptionPayload) (*model.PrescriptionRequest, error)
	UpdateStatus(ctx context.Context, principal model.Principal, id string, status model.PrescriptionStatus) (*model.PrescriptionRequest, error)
}

// AccountService defines registration, login and profile lookup.
type AccountService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error)
	Profile(ctx context.Context, principal model.Principal) (*model.User, error)
}

// TokenIssuer issues access tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *model.User) (string, error)
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	maxOffset        = math.MaxInt32
)

// normalisePage applies paging defaults and returns page, limit and offset.
func normalisePage(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if last := maxOffset/limit + 1; page > last {
		page = last
	}
	return page, limit, (page - 1) * limit
}
