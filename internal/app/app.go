package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/weissv/olymp-pay/internal/auth"
	"github.com/weissv/olymp-pay/internal/config"
	"github.com/weissv/olymp-pay/internal/events"
	"github.com/weissv/olymp-pay/internal/grpc_server"
	"github.com/weissv/olymp-pay/internal/handler"
	"github.com/weissv/olymp-pay/internal/repository"
	"github.com/weissv/olymp-pay/internal/repository/memory"
	"github.com/weissv/olymp-pay/internal/service"
	"github.com/weissv/olymp-pay/pkg/db"
	"github.com/weissv/olymp-pay/pkg/shutdown"
)

const readinessInterval = 5 * time.Second

type App struct {
	cfg         *config.Config
	logger      *zap.Logger
	httpServer  *http.Server
	health      *grpc_server.HealthServer
	pingers     []handler.Pinger
	shutdownMgr *shutdown.Manager
	wg          sync.WaitGroup
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Build connects every dependency and wires the webhook. On error, whatever
// was already opened is closed again.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (a *App, err error) {
	shutdownMgr := shutdown.New(cfg.ShutdownTimeout, logger)
	defer func() {
		if err != nil {
			shutdownMgr.Shutdown()
		}
	}()

	var (
		registrations repository.RegistrationRepository
		transactions  repository.TransactionRepository
		pingers       []handler.Pinger
	)

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		logger.Info("connecting to postgres")
		pool, err := db.NewPostgresDB(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		shutdownMgr.Add("postgres_pool", shutdown.ClosePool(pool))

		if cfg.AutoMigrate {
			if err := db.Migrate(ctx, pool, "up", logger); err != nil {
				return nil, err
			}
		}
		registrations = repository.NewRegistrationRepository(pool)
		transactions = repository.NewTransactionRepository(pool)
		pingers = append(pingers, pool)
	case config.StorageMemory:
		logger.Warn("using in-memory storage, state is lost on restart")
		store := memory.NewStore()
		registrations, transactions = store, store
	}

	var secrets auth.SecretStore = auth.NewMemorySecretStore(cfg.PaymeSecretKey)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		shutdownMgr.Add("redis", shutdown.Close(client))
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		secrets = auth.NewRedisSecretStore(client, cfg.PaymeSecretKey, logger)
		pingers = append(pingers, pingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
	}
	verifier := auth.NewVerifier(cfg.PaymeLogin, secrets, logger)

	var publisher service.EventPublisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(logger, cfg.KafkaBrokers, cfg.KafkaPaymentTopic)
		shutdownMgr.Add("kafka_writer", shutdown.Close(kafkaPublisher))
		publisher = kafkaPublisher
	}

	paymentService := service.NewPaymentService(registrations, transactions, verifier, publisher, logger)

	if cfg.AppEnv == config.EnvDocker {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handler.NewRPCHandler(paymentService, verifier, logger).RegisterRoutes(router)
	handler.NewHealthHandler(pingers...).RegisterRoutes(router)

	var health *grpc_server.HealthServer
	if cfg.GRPCHealthAddr != "" {
		health = grpc_server.NewHealthServer(logger)
		shutdownMgr.Add("grpc_health_server", shutdown.ShutdownGRPCServer(health))
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	shutdownMgr.Add("http_server", shutdown.ShutdownHTTPServer(httpServer))
	if health != nil {
		shutdownMgr.Add("grpc_health_not_serving", shutdown.SetHealthNotServing(health))
	}

	return &App{
		cfg:         cfg,
		logger:      logger,
		httpServer:  httpServer,
		health:      health,
		pingers:     pingers,
		shutdownMgr: shutdownMgr,
	}, nil
}

// Run serves until ctx is cancelled, a termination signal arrives or a
// listener fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		errMu    sync.Mutex
		serveErr error
	)
	fail := func(err error) {
		errMu.Lock()
		if serveErr == nil {
			serveErr = err
		}
		errMu.Unlock()
		cancel()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logger.Info("starting webhook server",
			zap.String("addr", a.httpServer.Addr),
			zap.String("path", handler.WebhookPath),
			zap.Bool("tls", a.cfg.TLSEnabled()))

		var err error
		if a.cfg.TLSEnabled() {
			err = a.httpServer.ListenAndServeTLS(a.cfg.CertFile, a.cfg.KeyFile)
		} else {
			err = a.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			fail(fmt.Errorf("http server: %w", err))
		}
	}()

	if a.health != nil {
		lis, err := net.Listen("tcp", a.cfg.GRPCHealthAddr)
		if err != nil {
			fail(fmt.Errorf("grpc health listener: %w", err))
		} else {
			a.wg.Add(2)
			go func() {
				defer a.wg.Done()
				if err := a.health.Serve(lis); err != nil {
					a.logger.Error("grpc health server error", zap.Error(err))
					fail(err)
				}
			}()
			go func() {
				defer a.wg.Done()
				a.health.Watch(ctx, readinessInterval, a.ready)
			}()
			// Runs first on shutdown so the watcher cannot flip back to SERVING.
			a.shutdownMgr.Add("readiness_watch", func(context.Context) error {
				cancel()
				return nil
			})
		}
	}

	a.shutdownMgr.Wait(ctx)
	cancel()
	a.wg.Wait()
	a.logger.Info("webhook service stopped")

	errMu.Lock()
	defer errMu.Unlock()
	return serveErr
}

func (a *App) ready(ctx context.Context) error {
	for _, p := range a.pingers {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}
