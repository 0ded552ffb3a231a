// @title medi-kart API
// @version 1.0
// @description Online pharmacy: catalog, cart, orders and prescription requests.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medi-kart/internal/auth"
	"medi-kart/internal/config"
	"medi-kart/internal/database"
	"medi-kart/internal/events"
	"medi-kart/internal/handler"
	"medi-kart/internal/repository"
	"medi-kart/internal/router"
	"medi-kart/internal/service"
	"medi-kart/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// repositories is the persistence layer selected by configuration.
type repositories struct {
	tx            repository.TxManager
	medicines     repository.MedicineRepository
	carts         repository.CartRepository
	orders        repository.OrderRepository
	prescriptions repository.PrescriptionRepository
	users         repository.UserRepository
	close         func()
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Str("storage", cfg.Storage.Driver).Msg("starting medi-kart API server")

	if cfg.Logger.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repos.close()

	images, err := newImageStore(ctx, cfg.Uploads, logger)
	if err != nil {
		return err
	}

	publisher, err := newPublisher(cfg.RabbitMQ, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	policy := auth.DefaultPolicy()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Initialize services
	accountService := service.NewAccountService(repos.users, tokens, policy, logger)
	medicineService := service.NewMedicineService(repos.medicines, policy, logger)
	cartService := service.NewCartService(repos.tx, repos.carts, repos.medicines, policy, logger)
	orderService := service.NewOrderService(repos.tx, repos.orders, repos.medicines, repos.carts, publisher, policy, logger)
	prescriptionService := service.NewPrescriptionService(repos.prescriptions, images, policy, service.UploadLimits{
		MaxFiles:    cfg.Uploads.MaxFiles,
		MaxFileSize: cfg.Uploads.MaxFileSize,
	}, logger)

	// Initialize router
	engine := router.New(router.Handlers{
		Auth:         handler.NewAuthHandler(accountService, logger),
		Medicine:     handler.NewMedicineHandler(medicineService, logger),
		Cart:         handler.NewCartHandler(cartService, logger),
		Order:        handler.NewOrderHandler(orderService, logger),
		Prescription: handler.NewPrescriptionHandler(prescriptionService, logger),
	}, tokens, router.Options{
		UploadDir:      cfg.Uploads.Dir,
		MetricsEnabled: cfg.Metrics.Enabled,
	}, logger)
	engine.MaxMultipartMemory = cfg.Uploads.MaxFileSize * int64(cfg.Uploads.MaxFiles)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

func openRepositories(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repositories, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		logger.Warn().Msg("using in-memory storage, data is lost on restart")
		store := repository.NewMemoryStore()
		return &repositories{
			tx:            repository.NewMemoryTx(store),
			medicines:     repository.NewMemoryMedicines(store),
			carts:         repository.NewMemoryCarts(store),
			orders:        repository.NewMemoryOrders(store),
			prescriptions: repository.NewMemoryPrescriptions(store),
			users:         repository.NewMemoryUsers(store),
			close:         func() {},
		}, nil
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return &repositories{
		tx:            repository.NewTxManager(pool, logger),
		medicines:     repository.NewMedicineRepository(pool, logger),
		carts:         repository.NewCartRepository(pool, logger),
		orders:        repository.NewOrderRepository(pool, logger),
		prescriptions: repository.NewPrescriptionRepository(pool, logger),
		users:         repository.NewUserRepository(pool, logger),
		close:         pool.Close,
	}, nil
}

// newImageStore writes prescription images to local disk, trying S3 first
// when it is enabled.
func newImageStore(ctx context.Context, cfg config.UploadsConfig, logger zerolog.Logger) (storage.Store, error) {
	local, err := storage.NewLocalStore(cfg.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize upload directory: %w", err)
	}

	if !cfg.S3.Enabled {
		logger.Info().Str("dir", cfg.Dir).Msg("using local file system for prescription images (S3 disabled)")
		return local, nil
	}

	s3Store, err := storage.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 store, falling back to local file system only")
		return local, nil
	}

	return storage.NewFallbackStore(s3Store, local, logger), nil
}

func newPublisher(cfg config.RabbitMQConfig, logger zerolog.Logger) (events.Publisher, error) {
	if !cfg.Enabled {
		logger.Info().Msg("order events disabled (RabbitMQ disabled)")
		return events.NopPublisher{}, nil
	}

	pool, err := events.NewChannelPool(cfg.URL, cfg.Exchange, cfg.PoolSize, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	return events.NewRabbitPublisher(pool, cfg.Exchange, logger), nil
}
