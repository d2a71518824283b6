package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	accountabilitystore "veil/internal/accountability/store"
	identityservice "veil/internal/identity/service"
	jwttoken "veil/internal/jwt_token"
	moderationpublisher "veil/internal/moderation/publisher"
	moderationservice "veil/internal/moderation/service"
	moderationstore "veil/internal/moderation/store"
	personaservice "veil/internal/persona/service"
	personastore "veil/internal/persona/store"
	"veil/internal/platform/config"
	"veil/internal/platform/httpserver"
	"veil/internal/platform/logger"
	"veil/internal/platform/metrics"
	platformredis "veil/internal/platform/redis"
	"veil/internal/policy"
	"veil/internal/post/guard"
	postservice "veil/internal/post/service"
	poststore "veil/internal/post/store"
	truststore "veil/internal/trust/store"
	httptransport "veil/internal/transport/http"
	"veil/migrations"
	"veil/pkg/secrets"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	cipher, err := secrets.NewAESCipher(cfg.EmailEncKey)
	if err != nil {
		log.Error("failed to build email cipher", "error", err)
		os.Exit(1)
	}

	// Stores: postgres when a DSN is configured, in-memory otherwise.
	stores, db, err := buildStores(cfg.PostgresDSN)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	engine := policy.NewEngine(policy.DefaultTable())

	personaSvc := personaservice.New(
		stores.personas, stores.trust, stores.profiles, engine,
		personaservice.WithLogger(log),
		personaservice.WithMetrics(m),
	)
	identitySvc := identityservice.New(
		stores.profiles, stores.personas, personaSvc, stores.trust, cipher,
		identityservice.WithLogger(log),
		identityservice.WithMetrics(m),
	)

	// Optional redis sliding window for rate counting.
	var counter guard.PostCounter = stores.posts
	var postOpts []postservice.Option
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		window := poststore.NewRedisWindow(redisClient.Client, 2*time.Hour)
		counter = window
		postOpts = append(postOpts, postservice.WithWindowRecorder(window))
	}

	postGuard := guard.New(stores.personas, stores.trust, counter, engine,
		guard.WithLogger(log),
		guard.WithMetrics(m),
	)
	postOpts = append(postOpts, postservice.WithLogger(log), postservice.WithMetrics(m))
	postSvc := postservice.New(postGuard, stores.posts, postOpts...)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional kafka feed for the moderation audit stream.
	var moderationOpts []moderationservice.Option
	var auditPublisher *moderationpublisher.Kafka
	if len(cfg.Kafka.Brokers) > 0 {
		auditPublisher, err = moderationpublisher.NewKafka(rootCtx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		moderationOpts = append(moderationOpts, moderationservice.WithPublisher(auditPublisher))
	}
	moderationOpts = append(moderationOpts,
		moderationservice.WithLogger(log),
		moderationservice.WithMetrics(m),
	)
	moderationSvc := moderationservice.New(
		stores.audit, stores.trust, stores.profiles, stores.personas, stores.posts,
		moderationOpts...,
	)

	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, "veil", "veil")

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Identity:  httptransport.NewIdentityHandler(identitySvc, jwtSvc, config.SessionTTL, log),
		Persona:   httptransport.NewPersonaHandler(personaSvc, log),
		Post:      httptransport.NewPostHandler(postSvc, log),
		Admin:     httptransport.NewAdminHandler(moderationSvc, log),
		Validator: jwtSvc,
		Logger:    log,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		log.Info("starting veil server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if auditPublisher != nil {
		g.Go(func() error {
			if err := auditPublisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// storeSet bundles the five persistence surfaces behind their service-facing
// interfaces so main can swap the whole backend at once.
type storeSet struct {
	profiles interface {
		personaservice.ProfileStore
		identityservice.ProfileStore
		moderationservice.ProfileStore
	}
	personas interface {
		personaservice.PersonaStore
		identityservice.PersonaReader
		guard.PersonaReader
		moderationservice.PersonaReader
	}
	trust interface {
		personaservice.TrustLedger
		identityservice.TrustReader
		guard.TrustReader
		moderationservice.TrustLedger
	}
	posts interface {
		postservice.PostStore
		guard.PostCounter
		moderationservice.PostStore
	}
	audit moderationservice.LogStore
}

func buildStores(dsn string) (*storeSet, *sql.DB, error) {
	if dsn == "" {
		return &storeSet{
			profiles: accountabilitystore.NewInMemory(),
			personas: personastore.NewInMemory(),
			trust:    truststore.NewInMemory(),
			posts:    poststore.NewInMemory(),
			audit:    moderationstore.NewInMemory(),
		}, nil, nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := migrations.Apply(context.Background(), db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return &storeSet{
		profiles: accountabilitystore.NewPostgres(db),
		personas: personastore.NewPostgres(db),
		trust:    truststore.NewPostgres(db),
		posts:    poststore.NewPostgres(db),
		audit:    moderationstore.NewPostgres(db),
	}, db, nil
}
