package repository

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"medi-kart/internal/model"

	"github.com/google/uuid"
)

// MemoryStore is an in-process store backing every repository interface.
// Values are copied on the way in and out, and never mutated in place once
// stored.
type MemoryStore struct {
	mu              sync.RWMutex
	medicines       map[uuid.UUID]model.Medicine
	carts           map[uuid.UUID]model.Cart // keyed by user
	orders          map[uuid.UUID]model.Order
	orderSeq        []uuid.UUID
	prescriptions   map[uuid.UUID]model.PrescriptionRequest
	prescriptionSeq []uuid.UUID
	users           map[uuid.UUID]model.User
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		medicines:     make(map[uuid.UUID]model.Medicine),
		carts:         make(map[uuid.UUID]model.Cart),
		orders:        make(map[uuid.UUID]model.Order),
		prescriptions: make(map[uuid.UUID]model.PrescriptionRequest),
		users:         make(map[uuid.UUID]model.User),
	}
}

// transaction-aware locking helpers
type memoryTxKey struct{}

func inMemoryTx(ctx context.Context) bool {
	v, ok := ctx.Value(memoryTxKey{}).(bool)
	return ok && v
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !inMemoryTx(ctx) {
		m.mu.RLock()
	}
}

func (m *MemoryStore) runlock(ctx context.Context) {
	if !inMemoryTx(ctx) {
		m.mu.RUnlock()
	}
}

func (m *MemoryStore) wlock(ctx context.Context) {
	if !inMemoryTx(ctx) {
		m.mu.Lock()
	}
}

func (m *MemoryStore) wunlock(ctx context.Context) {
	if !inMemoryTx(ctx) {
		m.mu.Unlock()
	}
}

type memorySnapshot struct {
	medicines       map[uuid.UUID]model.Medicine
	carts           map[uuid.UUID]model.Cart
	orders          map[uuid.UUID]model.Order
	orderSeq        []uuid.UUID
	prescriptions   map[uuid.UUID]model.PrescriptionRequest
	prescriptionSeq []uuid.UUID
	users           map[uuid.UUID]model.User
}

// Stored values are immutable, so shallow map copies form a consistent snapshot.
func (m *MemoryStore) snapshot() memorySnapshot {
	return memorySnapshot{
		medicines:       maps.Clone(m.medicines),
		carts:           maps.Clone(m.carts),
		orders:          maps.Clone(m.orders),
		orderSeq:        slices.Clone(m.orderSeq),
		prescriptions:   maps.Clone(m.prescriptions),
		prescriptionSeq: slices.Clone(m.prescriptionSeq),
		users:           maps.Clone(m.users),
	}
}

func (m *MemoryStore) restore(s memorySnapshot) {
	m.medicines = s.medicines
	m.carts = s.carts
	m.orders = s.orders
	m.orderSeq = s.orderSeq
	m.prescriptions = s.prescriptions
	m.prescriptionSeq = s.prescriptionSeq
	m.users = s.users
}

// MemoryTx implements TxManager for the memory store. A transaction holds
// the store's write lock and restores a snapshot when fn fails.
type MemoryTx struct{ store *MemoryStore }

// NewMemoryTx creates a transaction manager over store.
func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

var _ TxManager = (*MemoryTx)(nil)

// WithinTx runs fn atomically against the store.
func (t *MemoryTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inMemoryTx(ctx) {
		return fn(ctx)
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	snap := t.store.snapshot()
	defer func() {
		if p := recover(); p != nil {
			t.store.restore(snap)
			panic(p)
		}
		if err != nil {
			t.store.restore(snap)
		}
	}()

	return fn(context.WithValue(ctx, memoryTxKey{}, true))
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMedicine(m model.Medicine) model.Medicine {
	m.SideEffects = slices.Clone(m.SideEffects)
	m.DiscountPrice = clonePtr(m.DiscountPrice)
	m.ExpiryDate = clonePtr(m.ExpiryDate)
	return m
}

func cloneCart(c model.Cart) model.Cart {
	items := make([]model.CartItem, len(c.Items))
	for i, item := range c.Items {
		item.Medicine = nil
		items[i] = item
	}
	c.Items = items
	return c
}

func cloneOrder(o model.Order) model.Order {
	o.Items = slices.Clone(o.Items)
	if o.Items == nil {
		o.Items = []model.OrderItem{}
	}
	o.DeliveryDate = clonePtr(o.DeliveryDate)
	o.TrackingNumber = clonePtr(o.TrackingNumber)
	return o
}

func clonePrescription(p model.PrescriptionRequest) model.PrescriptionRequest {
	p.Images = slices.Clone(p.Images)
	if p.Images == nil {
		p.Images = []string{}
	}
	p.SuggestedMedicines = slices.Clone(p.SuggestedMedicines)
	if p.SuggestedMedicines == nil {
		p.SuggestedMedicines = []model.SuggestedMedicine{}
	}
	p.RespondedBy = clonePtr(p.RespondedBy)
	p.RespondedAt = clonePtr(p.RespondedAt)
	return p
}

func page[T any](items []T, limit, offset int) []T {
	offset = max(offset, 0)
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return items[offset:end]
}

// MemoryMedicines implements MedicineRepository on a MemoryStore.
type MemoryMedicines struct{ store *MemoryStore }

// NewMemoryMedicines creates a medicine repository over store.
func NewMemoryMedicines(store *MemoryStore) *MemoryMedicines { return &MemoryMedicines{store: store} }

var _ MedicineRepository = (*MemoryMedicines)(nil)

func (r *MemoryMedicines) matching(filter model.MedicineFilter) []model.Medicine {
	search := strings.ToLower(filter.Search)
	out := make([]model.Medicine, 0)
	for _, m := range r.store.medicines {
		if filter.Category != "" && m.Category != filter.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(m.Name), search) &&
			!strings.Contains(strings.ToLower(m.Usage), search) {
			continue
		}
		out = append(out, cloneMedicine(m))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *MemoryMedicines) List(ctx context.Context, filter model.MedicineFilter) ([]model.Medicine, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	return page(r.matching(filter), filter.Limit, filter.Offset), nil
}

func (r *MemoryMedicines) Count(ctx context.Context, filter model.MedicineFilter) (int, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	return len(r.matching(filter)), nil
}

func (r *MemoryMedicines) GetByID(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	m, ok := r.store.medicines[id]
	if !ok {
		return nil, nil
	}
	cp := cloneMedicine(m)
	return &cp, nil
}

func (r *MemoryMedicines) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Medicine, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]model.Medicine, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if m, ok := r.store.medicines[id]; ok {
			out = append(out, cloneMedicine(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryMedicines) Create(ctx context.Context, m *model.Medicine) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	r.store.medicines[m.ID] = cloneMedicine(*m)
	return nil
}

func (r *MemoryMedicines) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	m, ok := r.store.medicines[id]
	if !ok || m.Stock < quantity {
		return false, nil
	}
	m.Stock -= quantity
	m.UpdatedAt = time.Now().UTC()
	r.store.medicines[id] = m
	return true, nil
}

func (r *MemoryMedicines) IncrementStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	m, ok := r.store.medicines[id]
	if !ok {
		return false, nil
	}
	m.Stock += quantity
	m.UpdatedAt = time.Now().UTC()
	r.store.medicines[id] = m
	return true, nil
}

// MemoryCarts implements CartRepository on a MemoryStore.
type MemoryCarts struct{ store *MemoryStore }

// NewMemoryCarts creates a cart repository over store.
func NewMemoryCarts(store *MemoryStore) *MemoryCarts { return &MemoryCarts{store: store} }

var _ CartRepository = (*MemoryCarts)(nil)

func (r *MemoryCarts) GetByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	c, ok := r.store.carts[userID]
	if !ok {
		return nil, nil
	}
	cp := cloneCart(c)
	return &cp, nil
}

func (r *MemoryCarts) Save(ctx context.Context, cart *model.Cart) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if existing, ok := r.store.carts[cart.UserID]; ok {
		cart.ID = existing.ID
	}
	r.store.carts[cart.UserID] = cloneCart(*cart)
	return nil
}

func (r *MemoryCarts) Clear(ctx context.Context, userID uuid.UUID) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	c, ok := r.store.carts[userID]
	if !ok {
		return nil
	}
	c.Items = []model.CartItem{}
	c.UpdatedAt = time.Now().UTC()
	r.store.carts[userID] = c
	return nil
}

// MemoryOrders implements OrderRepository on a MemoryStore.
type MemoryOrders struct{ store *MemoryStore }

// NewMemoryOrders creates an order repository over store.
func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (r *MemoryOrders) Create(ctx context.Context, o *model.Order) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	r.store.orders[o.ID] = cloneOrder(*o)
	r.store.orderSeq = append(r.store.orderSeq, o.ID)
	return nil
}

func (r *MemoryOrders) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	o, ok := r.store.orders[id]
	if !ok {
		return nil, nil
	}
	cp := cloneOrder(o)
	return &cp, nil
}

// newestFirst walks orders in reverse insertion order.
func (r *MemoryOrders) newestFirst(keep func(o model.Order) bool) []model.Order {
	out := make([]model.Order, 0)
	for i := len(r.store.orderSeq) - 1; i >= 0; i-- {
		o := r.store.orders[r.store.orderSeq[i]]
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	return out
}

func (r *MemoryOrders) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	return r.newestFirst(func(o model.Order) bool { return o.UserID == userID }), nil
}

func (r *MemoryOrders) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	all := r.newestFirst(func(o model.Order) bool {
		return filter.Status == "" || o.Status == filter.Status
	})
	return page(all, filter.Limit, filter.Offset), len(all), nil
}

func (r *MemoryOrders) UpdateStatus(ctx context.Context, o *model.Order, expected model.OrderStatus) (bool, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	stored, ok := r.store.orders[o.ID]
	if !ok || stored.Status != expected {
		return false, nil
	}
	stored.Status = o.Status
	stored.PaymentStatus = o.PaymentStatus
	stored.TrackingNumber = clonePtr(o.TrackingNumber)
	stored.DeliveryDate = clonePtr(o.DeliveryDate)
	stored.UpdatedAt = o.UpdatedAt
	r.store.orders[o.ID] = stored
	return true, nil
}

// MemoryPrescriptions implements PrescriptionRepository on a MemoryStore.
type MemoryPrescriptions struct{ store *MemoryStore }

// NewMemoryPrescriptions creates a prescription repository over store.
func NewMemoryPrescriptions(store *MemoryStore) *MemoryPrescriptions {
	return &MemoryPrescriptions{store: store}
}

var _ PrescriptionRepository = (*MemoryPrescriptions)(nil)

func (r *MemoryPrescriptions) Create(ctx context.Context, p *model.PrescriptionRequest) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	r.store.prescriptions[p.ID] = clonePrescription(*p)
	r.store.prescriptionSeq = append(r.store.prescriptionSeq, p.ID)
	return nil
}

func (r *MemoryPrescriptions) GetByID(ctx context.Context, id uuid.UUID) (*model.PrescriptionRequest, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	p, ok := r.store.prescriptions[id]
	if !ok {
		return nil, nil
	}
	cp := clonePrescription(p)
	return &cp, nil
}

func (r *MemoryPrescriptions) newestFirst(keep func(p model.PrescriptionRequest) bool) []model.PrescriptionRequest {
	out := make([]model.PrescriptionRequest, 0)
	for i := len(r.store.prescriptionSeq) - 1; i >= 0; i-- {
		p := r.store.prescriptions[r.store.prescriptionSeq[i]]
		if keep(p) {
			out = append(out, clonePrescription(p))
		}
	}
	return out
}

func (r *MemoryPrescriptions) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.PrescriptionRequest, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	return r.newestFirst(func(p model.PrescriptionRequest) bool { return p.PatientID == patientID }), nil
}

func (r *MemoryPrescriptions) List(ctx context.Context, filter model.PrescriptionFilter) ([]model.PrescriptionRequest, int, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	all := r.newestFirst(func(p model.PrescriptionRequest) bool {
		return filter.Status == "" || p.Status == filter.Status
	})
	return page(all, filter.Limit, filter.Offset), len(all), nil
}

func (r *MemoryPrescriptions) Update(ctx context.Context, p *model.PrescriptionRequest, expected model.PrescriptionStatus) (bool, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	stored, ok := r.store.prescriptions[p.ID]
	if !ok || stored.Status != expected {
		return false, nil
	}
	stored.Status = p.Status
	stored.PharmacistNotes = p.PharmacistNotes
	stored.SuggestedMedicines = slices.Clone(p.SuggestedMedicines)
	stored.RespondedBy = clonePtr(p.RespondedBy)
	stored.RespondedAt = clonePtr(p.RespondedAt)
	stored.UpdatedAt = p.UpdatedAt
	r.store.prescriptions[p.ID] = clonePrescription(stored)
	return true, nil
}

// MemoryUsers implements UserRepository on a MemoryStore.
type MemoryUsers struct{ store *MemoryStore }

// NewMemoryUsers creates a user repository over store.
func NewMemoryUsers(store *MemoryStore) *MemoryUsers { return &MemoryUsers{store: store} }

var _ UserRepository = (*MemoryUsers)(nil)

func (r *MemoryUsers) Create(ctx context.Context, u *model.User) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	email := strings.ToLower(u.Email)
	for _, existing := range r.store.users {
		if existing.Email == email {
			return model.ErrUserExists
		}
	}
	cp := *u
	cp.Email = email
	cp.DateOfBirth = clonePtr(u.DateOfBirth)
	r.store.users[u.ID] = cp
	return nil
}

func (r *MemoryUsers) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	u, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}
	u.DateOfBirth = clonePtr(u.DateOfBirth)
	return &u, nil
}

func (r *MemoryUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	email = strings.ToLower(email)
	for _, u := range r.store.users {
		if u.Email == email {
			u.DateOfBirth = clonePtr(u.DateOfBirth)
			return &u, nil
		}
	}
	return nil, nil
}
