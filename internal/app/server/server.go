package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/school-admin/internal/cache"
	"github.com/magabrotheeeer/school-admin/internal/config"
	"github.com/magabrotheeeer/school-admin/internal/lib/jwt"
	"github.com/magabrotheeeer/school-admin/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/school-admin/internal/lib/sl"
	"github.com/magabrotheeeer/school-admin/internal/metrics"
	"github.com/magabrotheeeer/school-admin/internal/migrations"
	"github.com/magabrotheeeer/school-admin/internal/paymentprovider"
	authservice "github.com/magabrotheeeer/school-admin/internal/services/auth"
	"github.com/magabrotheeeer/school-admin/internal/services/billing"
	"github.com/magabrotheeeer/school-admin/internal/services/checkout"
	"github.com/magabrotheeeer/school-admin/internal/services/notifier"
	"github.com/magabrotheeeer/school-admin/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP API и gRPC health-сервер.
type App struct {
	server     *http.Server
	grpcServer *grpc.Server
	health     *grpchealth.Server
	listener   net.Listener
	logger     *slog.Logger
	db         *repository.Storage
	cache      *cache.Cache
	conn       *amqp.Connection
	ch         *amqp.Channel
}

// New подключает хранилище, применяет миграции и собирает сервисы.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.server.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a := &App{logger: logger, db: db}

	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		a.closeResources()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	var notify authservice.Notifier
	if cfg.RabbitMQURL != "" {
		a.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.ch, err = rabbitmq.SetupChannel(a.conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		notify = notifier.NewBroker(logger, a.ch, m)
	} else {
		logger.Warn("rabbitmq is not configured, reset links are logged and returned in responses")
		notify = notifier.NewLog(logger)
	}

	opts := billing.Options{
		TrialDays:     cfg.TrialDays,
		BillingDays:   cfg.BillingDays,
		MonthlyPrice:  cfg.MonthlyPrice,
		Currency:      cfg.Currency,
		SigningSecret: cfg.SigningSecret,
	}
	if cfg.Dedupe {
		if cfg.AddressRedis == "" {
			a.closeResources()
			return nil, fmt.Errorf("%s: webhook dedupe requires redis_connection.addressredis", op)
		}
		a.cache, err = cache.InitServer(ctx, cfg.RedisConnection, cfg.DedupeTTL)
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		opts.Guard = a.cache
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.NewAuthService(logger, db, jwtMaker, notify, authservice.ResetOptions{
		BaseURL:     cfg.BaseURL,
		ExposeLinks: cfg.RabbitMQURL == "",
	})
	billingService := billing.New(logger, db, m, opts)

	if cfg.SecretKey == "" {
		logger.Warn("chargily secret key is not set, checkout is disabled")
	}
	gateway := paymentprovider.NewClient(cfg.SecretKey, cfg.Chargily.ChargilyBaseURL(), cfg.Chargily.Timeout)
	checkoutService := checkout.New(logger, gateway, m, checkout.Plan{
		Amount:     cfg.MonthlyPrice,
		Currency:   cfg.Currency,
		Name:       cfg.Plan,
		Locale:     cfg.Locale,
		SuccessURL: cfg.SuccessURL,
	})

	router := chi.NewRouter()
	RegisterRoutes(router, Deps{
		Log:      logger,
		Auth:     authService,
		Billing:  billingService,
		Checkout: checkoutService,
		Tokens:   jwtMaker,
		DB:       db,
		Metrics:  m,
		Gatherer: registry,
	})

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	a.listener, err = net.Listen("tcp", cfg.GRPCHealthAddress)
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.grpcServer = grpc.NewServer()
	a.health = grpchealth.NewServer()
	healthpb.RegisterHealthServer(a.grpcServer, a.health)

	return a, nil
}

// Run запускает HTTP и gRPC серверы и останавливает их по отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()
	go func() {
		a.logger.Info("gRPC health service listening on", slog.String("address", a.listener.Addr().String()))
		errCh <- a.grpcServer.Serve(a.listener)
	}()
	a.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	a.logger.Info("shutting down servers gracefully")
	a.health.Shutdown()
	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(timeoutCtx); err != nil && runErr == nil {
		runErr = err
	}
	a.grpcServer.GracefulStop()
	a.closeResources()
	return runErr
}

func (a *App) closeResources() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database", sl.Err(err))
		}
	}
}
