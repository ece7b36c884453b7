package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/auth"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/config"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/event"
	handler "github.com/vyomverma2873-dotcom/quicksnack-auth/internal/handler/http"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/ratelimit"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/repository/postgres"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/sender"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/sender/mock"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/service"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/migrations"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/database"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/health"
	pkgkafka "github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/kafka"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/tracing"
)

// App wires together all dependencies and runs the auth service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	sweeper        *service.Sweeper
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    "quicksnack-auth",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "auth")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Redis backs issuance throttling. The limiter fails open, so an
	// unreachable Redis downgrades to no throttling instead of blocking boot.
	var limiter ratelimit.Limiter = ratelimit.Noop{}
	var redisClient *redis.Client
	if cfg.RedisHost != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			logger.Warn("redis unavailable, OTP issuance throttling disabled",
				slog.String("error", err.Error()),
			)
			redisClient = nil
		} else {
			limiter = ratelimit.NewRedisLimiter(redisClient, logger)
			logger.Info("connected to Redis",
				slog.String("host", cfg.RedisHost),
				slog.Int("port", cfg.RedisPort),
			)
		}
	}

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Passcode delivery channel, wrapped in a circuit breaker so a failing
	// channel sheds load instead of stalling issuance requests.
	var channel sender.Sender
	switch cfg.SenderChannel {
	case "mock":
		channel = mock.NewMockSender(logger)
	default:
		channel = sender.NewKafkaSender(producer, event.SourceAuthService)
	}
	otpSender := sender.NewBreakerSender(channel, sender.DefaultBreakerConfig(), logger)
	logger.Info("OTP sender initialized", slog.String("channel", cfg.SenderChannel))

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTSessionExpiry)
	userRepo := postgres.NewUserRepository(pool)
	ticketRepo := postgres.NewTicketRepository(pool)
	eventProducer := event.NewProducer(producer, logger)

	otpService := service.NewOTPService(ticketRepo, otpSender, limiter, service.OTPConfig{
		TTL:         cfg.OTPTTL,
		MaxAttempts: cfg.OTPMaxAttempts,
		BcryptCost:  cfg.OTPBcryptCost,
		RateLimit:   cfg.OTPRateLimit,
		RateWindow:  cfg.OTPRateWindow,
	}, logger)
	authService := service.NewAuthService(userRepo, otpService, jwtManager, eventProducer, cfg.PasswordBcryptCost, logger)
	sweeper := service.NewSweeper(ticketRepo, cfg.OTPSweepInterval, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	// HTTP router.
	router := handler.NewRouter(otpService, authService, jwtManager, healthHandler, logger, handler.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Environment:    cfg.Environment,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		sweeper:        sweeper,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the expired-ticket sweeper and the HTTP server, blocking until
// the context is canceled.
func (a *App) Run(ctx context.Context) error {
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go a.sweeper.Run(sweepCtx)

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis client.
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis client close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 5. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
