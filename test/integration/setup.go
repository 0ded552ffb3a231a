package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"medi-kart/internal/config"
	"medi-kart/internal/database"
	"medi-kart/internal/model"
	"medi-kart/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts a PostgreSQL container, connects a pool and applies
// the schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}

	logger := zerolog.Nop()
	pool, err := database.NewPool(ctx, config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Database:        "testdb",
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 300,
	}, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedMedicine inserts one medicine and returns it.
func SeedMedicine(t *testing.T, pool *pgxpool.Pool, name, price, discount string, stock int) *model.Medicine {
	t.Helper()

	now := time.Now().UTC()
	m := &model.Medicine{
		ID:          uuid.New(),
		Name:        name,
		Usage:       name + " usage",
		Category:    "General",
		Price:       decimal.RequireFromString(price),
		Currency:    model.DefaultCurrency,
		Stock:       stock,
		SideEffects: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if discount != "" {
		d := decimal.RequireFromString(discount)
		m.DiscountPrice = &d
	}

	repo := repository.NewMedicineRepository(pool, zerolog.Nop())
	if err := repo.Create(context.Background(), m); err != nil {
		t.Fatalf("failed to seed medicine %s: %v", name, err)
	}
	return m
}

// SeedUser inserts a user with the given role and returns it.
func SeedUser(t *testing.T, pool *pgxpool.Pool, role model.Role) *model.User {
	t.Helper()

	now := time.Now().UTC()
	u := &model.User{
		ID:           uuid.New(),
		Name:         string(role) + " user",
		Email:        fmt.Sprintf("%s-%s@example.com", role, uuid.NewString()[:8]),
		PasswordHash: "not-a-real-hash",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	repo := repository.NewUserRepository(pool, zerolog.Nop())
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return u
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"order_items", "orders", "cart_items", "carts", "prescription_requests", "medicines", "users"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
