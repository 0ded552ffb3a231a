package service

import (
	"context"
	"testing"
	"time"

	"medi-kart/internal/auth"
	"medi-kart/internal/events"
	"medi-kart/internal/model"
	"medi-kart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPublisher is a mock implementation of events.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event events.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// fixture wires every service to one in-memory store.
type fixture struct {
	store         *repository.MemoryStore
	medicines     *repository.MemoryMedicines
	carts         *repository.MemoryCarts
	orders        *repository.MemoryOrders
	prescriptions *repository.MemoryPrescriptions
	users         *repository.MemoryUsers
	tx            *repository.MemoryTx
	policy        *auth.Policy
}

func newFixture() *fixture {
	store := repository.NewMemoryStore()
	return &fixture{
		store:         store,
		medicines:     repository.NewMemoryMedicines(store),
		carts:         repository.NewMemoryCarts(store),
		orders:        repository.NewMemoryOrders(store),
		prescriptions: repository.NewMemoryPrescriptions(store),
		users:         repository.NewMemoryUsers(store),
		tx:            repository.NewMemoryTx(store),
		policy:        auth.DefaultPolicy(),
	}
}

func (f *fixture) cartService() CartService {
	return NewCartService(f.tx, f.carts, f.medicines, f.policy, zerolog.Nop())
}

func (f *fixture) orderService(publisher events.Publisher) OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return NewOrderService(f.tx, f.orders, f.medicines, f.carts, publisher, f.policy, zerolog.Nop())
}

// addMedicine stores a medicine priced at price with an optional discount.
func (f *fixture) addMedicine(t *testing.T, name string, price string, discount string, stock int) *model.Medicine {
	t.Helper()

	m := &model.Medicine{
		ID:        uuid.New(),
		Name:      name,
		Usage:     name + " usage",
		Category:  "General",
		Price:     decimal.RequireFromString(price),
		Currency:  model.DefaultCurrency,
		Stock:     stock,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if discount != "" {
		d := decimal.RequireFromString(discount)
		m.DiscountPrice = &d
	}

	require.NoError(t, f.medicines.Create(context.Background(), m))
	return m
}

func (f *fixture) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	m, err := f.medicines.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m.Stock
}

func patient() model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.RolePatient}
}

func pharmacist() model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.RolePharmacist}
}

func admin() model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.RoleAdmin}
}

func intPtr(v int) *int { return &v }

func validAddress() model.ShippingAddress {
	return model.ShippingAddress{
		FullName: "Asha Rao",
		Address:  "12 MG Road",
		City:     "Bengaluru",
		State:    "KA",
		ZipCode:  "560001",
		Phone:    "9876543210",
	}
}
