package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/rs/cors"

	cfg "github.com/lky8/entries-shop/backend/config"
	"github.com/lky8/entries-shop/backend/internal/core/ports"
	"github.com/lky8/entries-shop/backend/internal/handlers"
	"github.com/lky8/entries-shop/backend/internal/payments/clients"
	"github.com/lky8/entries-shop/backend/internal/usecases"
	"github.com/lky8/entries-shop/backend/internal/usecases/repository"
	"github.com/lky8/entries-shop/backend/internal/workers"
	"github.com/lky8/entries-shop/backend/pkg/cache"
	"github.com/lky8/entries-shop/backend/pkg/database"
)

func main() {
	time.Local = time.UTC

	config, err := cfg.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	opts := &slog.HandlerOptions{
		Level: config.Log.SlogLevel(),
	}
	if config.App.Debug {
		opts.Level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	logger.Info("Starting application with configuration",
		"environment", config.App.Environment,
		"debug", config.App.Debug,
		"server_port", config.HTTP.Port,
		"nowpayments_url", config.NowPayments.APIURL,
		"estimate_cache", config.Cache.RedisAddr != "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := database.New(config,
		database.MaxPoolSize(config.DB.PoolMax),
		database.ConnTimeout(config.DB.ConnectTimeout),
		database.HealthCheckPeriod(config.DB.HealthCheckPeriod),
		database.Isolation(pgx.ReadCommitted),
	)
	if err != nil {
		logger.Error("postgres connection failed", "error", err)
		return
	}
	defer pg.Close()

	migrationsPath := database.ResolveMigrationsPath(config.DB.MigrationsPath)
	logger.Info("Running database migrations", "path", migrationsPath)
	if err = database.RunMigrations(logger, config.DB.DatabaseURL, migrationsPath); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		return
	}

	// Repositories
	packagesRepository := repository.NewPackagesRepository(logger, pg)
	usersRepository := repository.NewUsersRepository(logger, pg)
	ordersRepository := repository.NewOrdersRepository(logger, pg)
	paymentsRepository := repository.NewPaymentsRepository(logger, pg)

	// Payment processor
	nowPayments := clients.NewNowPaymentsService(logger,
		config.NowPayments.APIKey,
		config.NowPayments.APIURL,
		clients.WithTimeout(config.NowPayments.Timeout),
		clients.WithRetries(config.NowPayments.Retries),
		clients.WithRetryDelay(config.NowPayments.RetryDelay),
		clients.WithInvoiceURLs(clients.InvoiceURLs{
			CallbackURL: config.NowPayments.CallbackURL,
			SuccessURL:  config.NowPayments.SuccessURL,
			CancelURL:   config.NowPayments.CancelURL,
		}),
	)
	signer := clients.NewSigner(config.NowPayments.SecretKey)

	catalogEstimator := usecases.PriceEstimator(nowPayments)
	if config.Cache.RedisAddr != "" {
		redis := cache.New(config.Cache.RedisAddr)
		defer redis.Close()

		if err = redis.Ping(ctx); err != nil {
			logger.Warn("Redis unavailable, estimates are not cached", "addr", config.Cache.RedisAddr, "error", err)
		} else {
			catalogEstimator = usecases.NewCachingEstimator(logger, nowPayments, repository.NewEstimatesCache(redis, config.Cache.EstimateTTL))
		}
	}

	// Usecases
	packageService := usecases.NewPackageService(logger, packagesRepository, catalogEstimator)
	orderService := usecases.NewOrderService(logger, pg.Transactor,
		usersRepository, packagesRepository, ordersRepository, paymentsRepository,
		nowPayments, nowPayments)
	webhookService := usecases.NewWebhookService(logger, signer, pg.Transactor, ordersRepository, paymentsRepository)

	initAndRunWorkers(ctx, logger, config, packageService)

	httpHandler := handlers.NewHTTPHandler(logger, packageService, orderService, webhookService, pg)

	router := mux.NewRouter()
	httpHandler.RegisterRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   config.HTTP.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", ports.SignatureHeader},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              ":" + config.HTTP.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: ports.ReadHeaderTimeout,
		ReadTimeout:       ports.ReadTimeout,
		WriteTimeout:      ports.WriteTimeout,
		IdleTimeout:       ports.IdleTimeout,
	}

	go func() {
		logger.Info("Starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ports.ShutdownTimeout)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return
	}

	logger.Info("Server exited properly")
}

func initAndRunWorkers(ctx context.Context, logger *slog.Logger, config *cfg.Config, packageService *usecases.PackageService) {
	if config.Workers.PriceRefreshInterval <= 0 {
		logger.Info("Price refresher disabled")
		return
	}

	priceRefresher := workers.NewPriceRefresher(logger, packageService, config.Workers.PriceRefreshInterval)

	go func() {
		priceRefresher.Start(ctx)
	}()

	logger.Info("All workers initialized and started")
}
