package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lojinha/internal/catalog"
	"lojinha/internal/config"
	"lojinha/internal/database"
	"lojinha/internal/dedup"
	"lojinha/internal/gateway"
	"lojinha/internal/handler"
	"lojinha/internal/inventory"
	"lojinha/internal/model"
	"lojinha/internal/notify"
	"lojinha/internal/order"
	"lojinha/internal/pricing"
	"lojinha/internal/promo"
	"lojinha/internal/repository"
	"lojinha/internal/router"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Local development convenience; the file is optional.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting lojinha API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	orderRepo := repository.NewOrderRepository(pool, logger)
	movementRepo := repository.NewMovementRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)

	// Rebuild the live stock counters from the persisted movement log,
	// then start draining new movements back to it.
	ledger := inventory.NewLedger(logger)
	totals, err := movementRepo.QuantityTotals(ctx)
	if err != nil {
		return fmt.Errorf("failed to rebuild stock ledger: %w", err)
	}
	for productID, qty := range totals {
		ledger.Register(model.InventoryRecord{ProductID: productID, Quantity: qty})
	}
	logger.Info().Int("products", len(totals)).Msg("stock ledger rebuilt from movement log")
	go ledger.Run(ctx, movementRepo)

	reservations := inventory.NewManager(ledger, cfg.Reservation.TTL, cfg.Reservation.SweepInterval, logger)
	go reservations.Start(ctx)

	composer, err := newComposer(ctx, cfg.Promo, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize discount composer: %w", err)
	}

	var catalogClient catalog.Client
	if cfg.Catalog.BaseURL != "" {
		catalogClient = catalog.NewHTTPClient(cfg.Catalog.BaseURL, logger)
	} else {
		logger.Warn().Msg("no catalogue URL configured, serving an empty static catalogue")
		catalogClient = catalog.NewStaticClient(nil)
	}

	gatewayClient := gateway.NewClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.Account,
		cfg.Gateway.Token,
		cfg.Gateway.SigningSecret,
		logger,
	)

	var notifier notify.Notifier
	if cfg.Kafka.Enabled {
		notifier = notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	} else {
		logger.Info().Msg("kafka disabled, order events will not be published")
		notifier = notify.NopNotifier{}
	}
	defer notifier.Close()

	var dedupStore dedup.Store
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		defer rdb.Close()
		dedupStore = dedup.NewRedisStore(rdb, logger)
	} else {
		logger.Info().Msg("redis disabled, webhook dedup is in-process only")
		dedupStore = dedup.NewMemoryStore()
	}

	orderService := order.NewService(
		orderRepo,
		paymentRepo,
		reservations,
		ledger,
		composer,
		catalogClient,
		gatewayClient,
		notifier,
		logger,
	)

	orderHandler := handler.NewOrderHandler(orderService, logger)
	inventoryHandler := handler.NewInventoryHandler(ledger, logger)
	shippingHandler := handler.NewShippingHandler(logger)
	webhookHandler := handler.NewWebhookHandler(gatewayClient, orderService, dedupStore, logger)

	mux := router.New(orderHandler, inventoryHandler, shippingHandler, webhookHandler, cfg.Auth.APIKey, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
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

// newComposer wires the three discount-code validators: against the
// promotions service when a base URL is set, otherwise from definition
// files loaded through S3 (with local fallback) or the local file system.
// A family with no source stays nil and is reported as unsupported at
// checkout.
func newComposer(ctx context.Context, cfg config.PromoConfig, logger zerolog.Logger) (*pricing.Composer, error) {
	if cfg.BaseURL != "" {
		return pricing.NewComposer(
			promo.NewHTTPValidator(cfg.BaseURL, "coupons", logger),
			promo.NewHTTPValidator(cfg.BaseURL, "referrals", logger),
			promo.NewHTTPValidator(cfg.BaseURL, "giftcards", logger),
			logger,
		), nil
	}

	loader := promo.NewFileLoader(logger)
	if cfg.S3Enabled {
		s3Loader, err := promo.NewS3Loader(ctx, cfg.S3Bucket, cfg.S3Region, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialise promo S3 loader, using local files only")
		} else {
			loader = promo.NewFallbackLoader(s3Loader, loader, cfg.S3Prefix, logger)
		}
	}

	loadOptional := func(path string) (pricing.CodeValidator, error) {
		if path == "" {
			return nil, nil
		}
		store, err := loader.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	coupons, err := loadOptional(cfg.CouponsFile)
	if err != nil {
		return nil, err
	}
	referrals, err := loadOptional(cfg.ReferralsFile)
	if err != nil {
		return nil, err
	}
	giftCards, err := loadOptional(cfg.GiftCardsFile)
	if err != nil {
		return nil, err
	}

	return pricing.NewComposer(coupons, referrals, giftCards, logger), nil
}
