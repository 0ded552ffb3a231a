package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"medi-kart/internal/auth"
	"medi-kart/internal/model"
	"medi-kart/internal/repository"
	"medi-kart/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedicineRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()
	repo := repository.NewMedicineRepository(testDB.Pool, logger)

	ctx := context.Background()

	t.Run("List filters by search and pages newest first", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedMedicine(t, testDB.Pool, "Paracetamol", "30.00", "", 10)
		SeedMedicine(t, testDB.Pool, "Ibuprofen", "45.00", "40.00", 5)
		SeedMedicine(t, testDB.Pool, "Cetirizine", "25.00", "", 7)

		all, err := repo.List(ctx, model.MedicineFilter{Limit: 10})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Cetirizine", all[0].Name)

		found, err := repo.List(ctx, model.MedicineFilter{Search: "PARA", Limit: 10})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Paracetamol", found[0].Name)

		page, err := repo.List(ctx, model.MedicineFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Len(t, page, 1)

		total, err := repo.Count(ctx, model.MedicineFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
	})

	t.Run("GetByID keeps decimal precision", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		seeded := SeedMedicine(t, testDB.Pool, "Ibuprofen", "45.50", "40.25", 5)

		m, err := repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.True(t, decimal.RequireFromString("45.50").Equal(m.Price))
		require.NotNil(t, m.DiscountPrice)
		assert.True(t, decimal.RequireFromString("40.25").Equal(*m.DiscountPrice))
		assert.Equal(t, 5, m.Stock)
	})

	t.Run("GetByID returns nil for unknown medicine", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		m, err := repo.GetByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("GetByIDs skips unknown ids", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		a := SeedMedicine(t, testDB.Pool, "Paracetamol", "30.00", "", 10)
		b := SeedMedicine(t, testDB.Pool, "Ibuprofen", "45.00", "", 5)

		found, err := repo.GetByIDs(ctx, []uuid.UUID{a.ID, uuid.New(), b.ID})
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("DecrementStock refuses to go below zero", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		m := SeedMedicine(t, testDB.Pool, "Paracetamol", "30.00", "", 3)

		ok, err := repo.DecrementStock(ctx, m.ID, 2)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.DecrementStock(ctx, m.ID, 2)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.IncrementStock(ctx, m.ID, 4)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.Stock)
	})

	t.Run("IncrementStock reports unknown medicine", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		ok, err := repo.IncrementStock(ctx, uuid.New(), 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestTxManager_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()
	tx := repository.NewTxManager(testDB.Pool, logger)
	medicines := repository.NewMedicineRepository(testDB.Pool, logger)

	ctx := context.Background()

	t.Run("error rolls back every write", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		a := SeedMedicine(t, testDB.Pool, "Paracetamol", "30.00", "", 5)
		b := SeedMedicine(t, testDB.Pool, "Ibuprofen", "45.00", "", 1)

		errBoom := errors.New("boom")
		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			ok, err := medicines.DecrementStock(ctx, a.ID, 2)
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = medicines.DecrementStock(ctx, b.ID, 2)
			require.NoError(t, err)
			if !ok {
				return errBoom
			}
			return nil
		})
		require.ErrorIs(t, err, errBoom)

		got, err := medicines.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.Stock)
	})

	t.Run("success commits", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		a := SeedMedicine(t, testDB.Pool, "Paracetamol", "30.00", "", 5)

		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			_, err := medicines.DecrementStock(ctx, a.ID, 2)
			return err
		})
		require.NoError(t, err)

		got, err := medicines.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Stock)
	})
}

func TestCartRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()
	repo := repository.NewCartRepository(testDB.Pool, logger)

	ctx := context.Background()

	t.Run("Save then GetByUser preserves line order", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		user := SeedUser(t, testDB.Pool, model.RolePatient)
		a := SeedMedicine(t, testDB.Pool, "Paracetamol", "30.00", "", 5)
		b := SeedMedicine(t, testDB.Pool, "Ibuprofen", "45.00", "", 5)

		now := time.Now().UTC()
		cart := &model.Cart{
			ID:     uuid.New(),
			UserID: user.ID,
			Items: []model.CartItem{
				{ID: uuid.New(), MedicineID: b.ID, Quantity: 1, Price: b.Price},
				{ID: uuid.New(), MedicineID: a.ID, Quantity: 3, Price: a.Price},
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, repo.Save(ctx, cart))

		got, err := repo.GetByUser(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Len(t, got.Items, 2)
		assert.Equal(t, b.ID, got.Items[0].MedicineID)
		assert.Equal(t, 3, got.Items[1].Quantity)
	})

	t.Run("Save replaces existing lines", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		user := SeedUser(t, testDB.Pool, model.RolePatient)
		a := SeedMedicine(t, testDB.Pool, "Paracetamol", "30.00", "", 5)

		now := time.Now().UTC()
		cart := &model.Cart{
			ID:        uuid.New(),
			UserID:    user.ID,
			Items:     []model.CartItem{{ID: uuid.New(), MedicineID: a.ID, Quantity: 1, Price: a.Price}},
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, repo.Save(ctx, cart))

		cart.Items[0].Quantity = 4
		require.NoError(t, repo.Save(ctx, cart))

		got, err := repo.GetByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, got.Items, 1)
		assert.Equal(t, 4, got.Items[0].Quantity)
	})

	t.Run("Clear empties the cart", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		user := SeedUser(t, testDB.Pool, model.RolePatient)
		a := SeedMedicine(t, testDB.Pool, "Paracetamol", "30.00", "", 5)

		now := time.Now().UTC()
		require.NoError(t, repo.Save(ctx, &model.Cart{
			ID:        uuid.New(),
			UserID:    user.ID,
			Items:     []model.CartItem{{ID: uuid.New(), MedicineID: a.ID, Quantity: 2, Price: a.Price}},
			CreatedAt: now,
			UpdatedAt: now,
		}))

		require.NoError(t, repo.Clear(ctx, user.ID))

		got, err := repo.GetByUser(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, got.Items)
	})

	t.Run("GetByUser returns nil without a cart", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		got, err := repo.GetByUser(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestCartService_ConcurrentAdds_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()
	carts := repository.NewCartRepository(testDB.Pool, logger)
	medicines := repository.NewMedicineRepository(testDB.Pool, logger)
	svc := service.NewCartService(repository.NewTxManager(testDB.Pool, logger), carts, medicines, auth.DefaultPolicy(), logger)

	ctx := context.Background()

	t.Run("adds to an existing cart are serialised", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		user := SeedUser(t, testDB.Pool, model.RolePatient)
		m := SeedMedicine(t, testDB.Pool, "Paracetamol", "30.00", "", 100)
		principal := model.Principal{UserID: user.ID, Role: model.RolePatient}
		one := 1
		add := &model.AddCartItemRequest{MedicineID: m.ID.String(), Quantity: &one}

		_, err := svc.AddItem(ctx, principal, add)
		require.NoError(t, err)

		const workers, perWorker = 4, 5
		var wg sync.WaitGroup
		errs := make(chan error, workers*perWorker)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range perWorker {
					if _, err := svc.AddItem(ctx, principal, add); err != nil {
						errs <- err
					}
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		cart, err := carts.GetByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 1+workers*perWorker, cart.Items[0].Quantity)
	})

	t.Run("saving a second new cart for the same user is a conflict", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		user := SeedUser(t, testDB.Pool, model.RolePatient)

		now := time.Now().UTC()
		require.NoError(t, carts.Save(ctx, &model.Cart{ID: uuid.New(), UserID: user.ID, CreatedAt: now, UpdatedAt: now}))

		err := carts.Save(ctx, &model.Cart{ID: uuid.New(), UserID: user.ID, CreatedAt: now, UpdatedAt: now})
		assert.ErrorIs(t, err, model.ErrCartConflict)
	})
}

func newTestOrder(userID uuid.UUID, m *model.Medicine, quantity int, createdAt time.Time) *model.Order {
	orderID := uuid.New()
	total := model.LineTotal(m.Price, quantity)
	order := &model.Order{
		ID:          orderID,
		OrderNumber: model.NewOrderNumber(createdAt),
		UserID:      userID,
		Items: []model.OrderItem{{
			ID:         uuid.New(),
			OrderID:    orderID,
			MedicineID: m.ID,
			Name:       m.Name,
			Quantity:   quantity,
			Price:      m.Price,
			Total:      total,
		}},
		ShippingAddress: model.ShippingAddress{
			FullName: "Asha Rao",
			Address:  "12 MG Road",
			City:     "Bengaluru",
			State:    "KA",
			ZipCode:  "560001",
			Phone:    "9999999999",
		},
		PaymentMethod: model.PaymentMethodCashOnDelivery,
		PaymentStatus: model.PaymentStatusPending,
		Status:        model.OrderStatusPending,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	order.ApplyTotals(model.ComputeTotals(total))
	return order
}

func TestOrderRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()
	repo := repository.NewOrderRepository(testDB.Pool, logger)

	ctx := context.Background()

	t.Run("Create and retrieve order with items", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		user := SeedUser(t, testDB.Pool, model.RolePatient)
		m := SeedMedicine(t, testDB.Pool, "Paracetamol", "30.00", "", 5)

		order := newTestOrder(user.ID, m, 2, time.Now().UTC())
		require.NoError(t, repo.Create(ctx, order))

		got, err := repo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, order.OrderNumber, got.OrderNumber)
		assert.Equal(t, model.OrderStatusPending, got.Status)
		assert.Equal(t, order.ShippingAddress, got.ShippingAddress)
		assert.True(t, order.TotalAmount.Equal(got.TotalAmount))
		require.Len(t, got.Items, 1)
		assert.Equal(t, "Paracetamol", got.Items[0].Name)
		assert.Equal(t, 2, got.Items[0].Quantity)
	})

	t.Run("ListByUser and List page newest first", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		user := SeedUser(t, testDB.Pool, model.RolePatient)
		other := SeedUser(t, testDB.Pool, model.RolePatient)
		m := SeedMedicine(t, testDB.Pool, "Paracetamol", "30.00", "", 5)

		base := time.Now().UTC().Add(-time.Hour)
		first := newTestOrder(user.ID, m, 1, base)
		second := newTestOrder(user.ID, m, 1, base.Add(time.Minute))
		third := newTestOrder(other.ID, m, 1, base.Add(2*time.Minute))
		for _, o := range []*model.Order{first, second, third} {
			require.NoError(t, repo.Create(ctx, o))
		}

		mine, err := repo.ListByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, second.ID, mine[0].ID)

		page, total, err := repo.List(ctx, model.OrderFilter{Limit: 2, Offset: 0})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, page, 2)
		assert.Equal(t, third.ID, page[0].ID)
		assert.Len(t, page[0].Items, 1)
	})

	t.Run("UpdateStatus applies only from the expected status", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		user := SeedUser(t, testDB.Pool, model.RolePatient)
		m := SeedMedicine(t, testDB.Pool, "Paracetamol", "30.00", "", 5)

		order := newTestOrder(user.ID, m, 1, time.Now().UTC())
		require.NoError(t, repo.Create(ctx, order))

		order.Status = model.OrderStatusCancelled
		ok, err := repo.UpdateStatus(ctx, order, model.OrderStatusPending)
		require.NoError(t, err)
		assert.True(t, ok)

		order.Status = model.OrderStatusConfirmed
		ok, err = repo.UpdateStatus(ctx, order, model.OrderStatusPending)
		require.NoError(t, err)
		assert.False(t, ok)

		filtered, total, err := repo.List(ctx, model.OrderFilter{Status: model.OrderStatusCancelled, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Len(t, filtered, 1)
	})

	t.Run("GetByID returns nil for unknown order", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		got, err := repo.GetByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestPrescriptionRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()
	repo := repository.NewPrescriptionRepository(testDB.Pool, logger)

	ctx := context.Background()

	newRequest := func(patientID uuid.UUID, createdAt time.Time) *model.PrescriptionRequest {
		return &model.PrescriptionRequest{
			ID:                 uuid.New(),
			PatientID:          patientID,
			Symptoms:           "headache",
			Description:        "three days",
			Images:             []string{"/uploads/a.png"},
			Status:             model.PrescriptionStatusPending,
			SuggestedMedicines: []model.SuggestedMedicine{},
			CreatedAt:          createdAt,
			UpdatedAt:          createdAt,
		}
	}

	t.Run("Create then respond round-trips suggestions", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		patient := SeedUser(t, testDB.Pool, model.RolePatient)
		pharmacist := SeedUser(t, testDB.Pool, model.RolePharmacist)

		req := newRequest(patient.ID, time.Now().UTC())
		require.NoError(t, repo.Create(ctx, req))

		now := time.Now().UTC()
		req.Status = model.PrescriptionStatusCompleted
		req.PharmacistNotes = "rest and fluids"
		req.SuggestedMedicines = []model.SuggestedMedicine{
			{Name: "Paracetamol", Dosage: "500mg", Frequency: "twice daily", Duration: "3 days"},
		}
		req.RespondedBy = &pharmacist.ID
		req.RespondedAt = &now
		req.UpdatedAt = now

		ok, err := repo.Update(ctx, req, model.PrescriptionStatusPending)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, req.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, model.PrescriptionStatusCompleted, got.Status)
		assert.Equal(t, []string{"/uploads/a.png"}, got.Images)
		require.Len(t, got.SuggestedMedicines, 1)
		assert.Equal(t, "500mg", got.SuggestedMedicines[0].Dosage)
		require.NotNil(t, got.RespondedBy)
		assert.Equal(t, pharmacist.ID, *got.RespondedBy)

		ok, err = repo.Update(ctx, req, model.PrescriptionStatusPending)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ListByPatient and List filter by status", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		patient := SeedUser(t, testDB.Pool, model.RolePatient)
		other := SeedUser(t, testDB.Pool, model.RolePatient)

		base := time.Now().UTC().Add(-time.Hour)
		require.NoError(t, repo.Create(ctx, newRequest(patient.ID, base)))
		latest := newRequest(patient.ID, base.Add(time.Minute))
		require.NoError(t, repo.Create(ctx, latest))
		review := newRequest(other.ID, base.Add(2*time.Minute))
		review.Status = model.PrescriptionStatusInReview
		require.NoError(t, repo.Create(ctx, review))

		mine, err := repo.ListByPatient(ctx, patient.ID)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, latest.ID, mine[0].ID)

		pending, total, err := repo.List(ctx, model.PrescriptionFilter{Status: model.PrescriptionStatusPending, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, pending, 2)

		all, total, err := repo.List(ctx, model.PrescriptionFilter{Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, all, 1)
		assert.Equal(t, review.ID, all[0].ID)
	})
}

func TestUserRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()
	repo := repository.NewUserRepository(testDB.Pool, logger)

	ctx := context.Background()

	t.Run("GetByEmail is case-insensitive", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		now := time.Now().UTC()
		u := &model.User{
			ID:           uuid.New(),
			Name:         "Asha",
			Email:        "Asha@Example.com",
			PasswordHash: "hash",
			Role:         model.RolePatient,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		require.NoError(t, repo.Create(ctx, u))

		got, err := repo.GetByEmail(ctx, "asha@example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, model.RolePatient, got.Role)

		byID, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, "asha@example.com", byID.Email)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		now := time.Now().UTC()
		newUser := func() *model.User {
			return &model.User{
				ID:           uuid.New(),
				Name:         "Asha",
				Email:        "asha@example.com",
				PasswordHash: "hash",
				Role:         model.RolePatient,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
		}
		require.NoError(t, repo.Create(ctx, newUser()))

		err := repo.Create(ctx, newUser())
		assert.ErrorIs(t, err, model.ErrUserExists)
	})

	t.Run("unknown user returns nil", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		got, err := repo.GetByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
