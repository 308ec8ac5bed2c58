package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"pacto/internal/billing"
	billinghandler "pacto/internal/billing/handler"
	billingservice "pacto/internal/billing/service"
	"pacto/internal/consent"
	consenthandler "pacto/internal/consent/handler"
	consentservice "pacto/internal/consent/service"
	"pacto/internal/encryption"
	"pacto/internal/events"
	jwttoken "pacto/internal/jwt_token"
	"pacto/internal/ledger"
	ledgerservice "pacto/internal/ledger/service"
	"pacto/internal/notification"
	notificationhandler "pacto/internal/notification/handler"
	notificationservice "pacto/internal/notification/service"
	"pacto/internal/platform/config"
	"pacto/internal/platform/httpserver"
	"pacto/internal/platform/logger"
	"pacto/internal/platform/metrics"
	platformredis "pacto/internal/platform/redis"
	httptransport "pacto/internal/transport/http"
	"pacto/internal/user"
	userhandler "pacto/internal/user/handler"
	userservice "pacto/internal/user/service"
)

// main wires the dependency graph and owns process lifecycle. Business logic
// lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	codec, err := payloadCodec(cfg, log)
	if err != nil {
		return err
	}

	// Stores: Postgres when configured, in-memory for development.
	var (
		db           *sql.DB
		userStore    user.Store
		ledgerStore  ledger.Store
		consentStore consent.Store
		notifStore   notification.Store
		unitOfWork   consentservice.UnitOfWork
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		userStore = user.NewPostgresStore(db)
		ledgerStore = ledger.NewPostgresStore(db)
		consentStore = consent.NewPostgresStore(db)
		notifStore = notification.NewPostgresStore(db)
		unitOfWork = newPostgresTx(db)
		log.Info("using postgres storage")
	} else {
		userStore = user.NewInMemoryStore()
		ledgerStore = ledger.NewInMemoryStore()
		consentStore = consent.NewInMemoryStore()
		notifStore = notification.NewInMemoryStore()
		unitOfWork = consentservice.NewShardedTx()
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Lifecycle events: Kafka when brokers are configured.
	var (
		emitter events.Emitter = events.NopEmitter{}
		worker  *events.Worker
	)
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := events.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer publisher.Close()
		worker = events.NewWorker(publisher, 256, log)
		emitter = worker
		log.Info("publishing lifecycle events", "topic", cfg.Kafka.Topic)
	}

	// Services.
	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer)
	creditSvc := ledgerservice.NewService(ledgerStore, userservice.SubscriptionReader{Store: userStore}, m)
	userSvc := userservice.NewService(userStore, tokens, creditSvc, m, cfg.TokenTTL)
	notifSvc := notificationservice.NewService(notifStore, m)
	consentSvc := consentservice.NewService(consentservice.Deps{
		Store:    consentStore,
		Users:    userStore,
		Credits:  creditSvc,
		Codec:    codec,
		Notifier: notifSvc,
		Events:   emitter,
		Tx:       unitOfWork,
		Metrics:  m,
		Logger:   log,
	})

	var deduper billing.EventDeduper
	if redisClient != nil {
		deduper = billing.NewRedisDeduper(redisClient)
	} else {
		deduper = billing.NewMemoryDeduper()
		log.Warn("REDIS_URL not set, payment-event dedup is process-local")
	}
	billingSvc := billingservice.NewService(userStore, billing.NewSandboxProvider(), creditSvc, deduper, log)

	// HTTP surface.
	healthChecks := map[string]httptransport.HealthChecker{}
	if db != nil {
		healthChecks["postgres"] = db.PingContext
	}
	if redisClient != nil {
		healthChecks["redis"] = redisClient.Health
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Users:         userhandler.New(userSvc, log),
		Consents:      consenthandler.New(consentSvc, log),
		Notifications: notificationhandler.New(notifSvc, log),
		Billing:       billinghandler.New(billingSvc, log),
		JWTValidator:  jwttoken.NewJWTServiceAdapter(tokens),
		Logger:        log,
		Metrics:       m,
		HealthChecks:  healthChecks,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if worker != nil {
		g.Go(func() error {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func payloadCodec(cfg config.Config, log *slog.Logger) (encryption.Codec, error) {
	if cfg.PayloadKey == "" {
		// Development fallback: payloads encrypted this run cannot be read
		// after a restart.
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		log.Warn("PAYLOAD_ENCRYPTION_KEY not set, using an ephemeral key")
		return encryption.NewAESCodec(key)
	}
	key, err := encryption.KeyFromBase64(cfg.PayloadKey)
	if err != nil {
		return nil, err
	}
	return encryption.NewAESCodec(key)
}
