package matchingservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/config"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/jwt"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/logger"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/postgres"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/rabbitmq"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/locking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/software/booking/handler"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/software/booking/service"
)

// Run wires the matching service and blocks until ctx is cancelled.
func Run(ctx context.Context, configPath string) error {
	// static request ID for startup logs
	log := logger.New("matching-service")
	ctx = log.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	// set up a Postgres connection pool
	pool, err := postgres.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// connect to the Redis lock store
	rdb, err := locking.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "redis_connection_failed", "Failed to connect to Redis", err, nil)
		return err
	}
	defer rdb.Close()

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	// set up the JWT manager
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	// set up the repos and the lock manager
	uow := postgres.NewUnitOfWork(pool)
	bookingRepo := postgres.NewBookingRepo()
	driverRepo := postgres.NewDriverRepo()
	lockManager := locking.NewManager(locking.NewRedisStore(rdb), log, cfg.Lock.KeyPrefix)
	lockOpts := locking.Options{
		TTL:         cfg.LockTTL(),
		MaxAttempts: cfg.Lock.MaxAttempts,
		BaseDelay:   cfg.LockBaseDelay(),
	}

	sink := rabbitmq.NewStatusSink(rmq, "matching-service")

	// set up the booking service
	svc := service.NewBookingService(log, uow, bookingRepo, driverRepo, driverRepo, sink, lockManager, lockOpts)

	// keep driver availability in sync with the driver app gateway
	listener := service.NewDriverStatusListener(log, rmq, uow, driverRepo)
	go func() {
		if err := listener.Run(ctx); err != nil {
			log.Error(ctx, "driver_status_listener_stopped", "Driver status listener exited", err, nil)
		}
	}()

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	httpHandler := handler.NewBookingHTTPHandler(svc, log, jwtManager)
	httpHandler.RegisterRoutes(mux)

	// concurrency limiter (global); blocks when capacity is full
	limitedHandler := withConcurrencyLimit(cfg.Service.MaxConcurrent, mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Service.Port),
		Handler:           limitedHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Info(ctx, "service_started",
		fmt.Sprintf("Matching Service started on port %d", cfg.Service.Port),
		map[string]any{"port": cfg.Service.Port, "max_concurrent": cfg.Service.MaxConcurrent},
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info(ctx, "shutdown_started", "Shutting down HTTP server", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Service.Port})
			return err
		}
		return nil
	}

	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
