// Package main is the entry point for the EduLearn platform server.
//
// It wires configuration, persistence, caching, the event bus, the
// settlement engine and the application layer together, then serves the
// HTTP API until a shutdown signal arrives.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/edulearn/edulearn-platform/config"
	"github.com/edulearn/edulearn-platform/internal/application/command"
	"github.com/edulearn/edulearn-platform/internal/application/query"
	"github.com/edulearn/edulearn-platform/internal/application/saga"
	"github.com/edulearn/edulearn-platform/internal/application/settlement"
	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/certificate"
	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/enrollment"
	"github.com/edulearn/edulearn-platform/internal/domain/ledger"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
	"github.com/edulearn/edulearn-platform/internal/infrastructure/external/media"
	"github.com/edulearn/edulearn-platform/internal/infrastructure/external/pdfrender"
	"github.com/edulearn/edulearn-platform/internal/infrastructure/messaging"
	"github.com/edulearn/edulearn-platform/internal/infrastructure/persistence/memory"
	"github.com/edulearn/edulearn-platform/internal/infrastructure/persistence/postgres"
	rediscache "github.com/edulearn/edulearn-platform/internal/infrastructure/persistence/redis"
	httpserver "github.com/edulearn/edulearn-platform/internal/interface/http"
	"github.com/edulearn/edulearn-platform/pkg/logger"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(os.Stdout, logger.ParseLevel(cfg.Observability.LogLevel))
	log.Info("starting",
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. PERSISTENCE (PostgreSQL, or in-memory stores for development)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		accounts     account.Repository
		users        account.UserRepository
		courses      course.Repository
		enrollments  enrollment.Repository
		certificates certificate.Repository
		transactions ledger.Repository
		settlements  ledger.SettlementStore
		dbConn       *postgres.Connection
	)

	if cfg.Database.Disabled || cfg.Database.URL == "" {
		log.Warn("postgres disabled, using in-memory stores")
		accountStore := memory.NewAccountStore()
		userStore := memory.NewUserStore()
		txnStore := memory.NewTransactionStore()
		accounts = accountStore
		users = userStore
		transactions = txnStore
		courses = memory.NewCourseStore()
		enrollments = memory.NewEnrollmentStore()
		certificates = memory.NewCertificateStore()
		settlements = memory.NewSettlementStore(accountStore, userStore, txnStore)
	} else {
		log.Info("connecting to database...")
		dbConn, err = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()

		if err := dbConn.Ping(ctx); err != nil {
			return fmt.Errorf("database ping: %w", err)
		}
		log.Info("database connection established")

		if cfg.Database.Migrate {
			log.Info("running database migrations...")
			if err := postgres.RunMigrations(ctx, dbConn); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}

		accounts = postgres.NewAccountRepository(dbConn)
		users = postgres.NewUserRepository(dbConn)
		courses = postgres.NewCourseRepository(dbConn)
		enrollments = postgres.NewEnrollmentRepository(dbConn)
		certificates = postgres.NewCertificateRepository(dbConn)
		transactions = postgres.NewTransactionRepository(dbConn)
		settlements = postgres.NewSettlementStore(dbConn)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	busCfg.AsyncMode = cfg.Features.Enabled(config.FeatureAsyncEvents)
	bus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	if cfg.Features.Enabled(config.FeatureAuditTrail) {
		if err := bus.SubscribeAll(messaging.NewAuditLogger(log)); err != nil {
			return fmt.Errorf("register audit subscriber: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var cache *rediscache.Cache
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := rediscache.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		cache, err = rediscache.NewCache(redisCfg)
		if err != nil {
			log.Warn("redis unavailable, caching disabled", logger.Err(err))
			cache = nil
		} else {
			defer cache.Close()
			log.Info("redis connection established")
		}
	}

	if cache != nil && cfg.Features.Enabled(config.FeatureCourseCache) {
		courses = rediscache.NewCachedCourseRepository(courses, cache)
	}

	var verifyCache query.VerificationCache
	if cache != nil && cfg.Features.Enabled(config.FeatureVerificationCache) {
		verifyCache = rediscache.NewVerificationCache(cache)
	}

	var statsCache query.StatsCache
	if cache != nil {
		sc := rediscache.NewStatsCache(cache)
		statsCache = sc

		// A new course must show up on the dashboard without waiting
		// out the TTL.
		if err := bus.Subscribe(shared.EventCourseCreated, func(shared.Event) error {
			return sc.Invalidate(context.Background())
		}); err != nil {
			return fmt.Errorf("register stats invalidation: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EXTERNAL CLIENTS
	// ─────────────────────────────────────────────────────────────────────────
	var mediaResolver query.MediaResolver
	if cfg.Media.SigningSecret != "" {
		resolver, err := media.NewResolver(media.Config{
			BaseURL:       cfg.Media.BaseURL,
			SigningSecret: cfg.Media.SigningSecret,
			TTL:           cfg.Media.URLTTL,
		})
		if err != nil {
			return fmt.Errorf("media resolver: %w", err)
		}
		mediaResolver = resolver
	} else {
		log.Warn("media signing secret not set, course content ships without playable URLs")
	}

	var renderer httpserver.CertificateRenderer
	if !cfg.PDFRender.Disabled && cfg.PDFRender.BaseURL != "" {
		renderCfg := pdfrender.DefaultConfig(cfg.PDFRender.BaseURL)
		renderCfg.APIKey = cfg.PDFRender.APIKey
		renderCfg.Timeout = cfg.PDFRender.Timeout
		renderCfg.BreakerConfig.FailureThreshold = cfg.PDFRender.BreakerThreshold
		renderCfg.BreakerConfig.OpenTimeout = cfg.PDFRender.BreakerTimeout
		renderCfg.Logger = log
		renderer = pdfrender.NewClient(renderCfg)
	} else {
		log.Warn("pdf rendering disabled, certificate downloads unavailable")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. SETTLEMENT ENGINE
	// ─────────────────────────────────────────────────────────────────────────
	platformAccount, err := shared.NewAccountNumber(cfg.Platform.AccountNumber)
	if err != nil {
		return fmt.Errorf("platform account: %w", err)
	}
	engine := settlement.NewEngine(accounts, settlements, bus, log, platformAccount)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER (commands, queries, sagas)
	// ─────────────────────────────────────────────────────────────────────────
	enrollmentFlow := saga.NewEnrollmentFlowSaga(courses, users, enrollments, engine, bus, log)
	issuer := command.NewIssueCertificateHandler(certificates, enrollments, users, courses, bus, log)

	enrollCmd := command.NewEnrollLearnerHandler(enrollmentFlow)
	progressCmd := command.NewRecordProgressHandler(enrollments, courses, issuer, bus, log)
	createCourseCmd := command.NewCreateCourseHandler(courses, users, engine, bus, log,
		cfg.Features.Enabled(config.FeatureCourseFunding), cfg.Platform.AccountSecret)
	revokeCmd := command.NewRevokeCertificateHandler(certificates, bus, log)

	learnerCoursesQry := query.NewGetLearnerCoursesHandler(enrollments, courses)
	courseContentQry := query.NewGetCourseContentHandler(enrollments, courses, mediaResolver)
	earningsQry := query.NewGetInstructorEarningsHandler(users, courses, enrollments)
	statsQry := query.NewGetPlatformStatsHandler(users, courses, transactions, statsCache)
	verifyQry := query.NewVerifyCertificateHandler(certificates, verifyCache, rediscache.TTLVerification, log)
	certificatesQry := query.NewGetLearnerCertificatesHandler(certificates)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout

	server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		EnrollLearner:     enrollCmd,
		RecordProgress:    progressCmd,
		CreateCourse:      createCourseCmd,
		RevokeCertificate: revokeCmd,

		LearnerCourses:      learnerCoursesQry,
		CourseContent:       courseContentQry,
		InstructorEarnings:  earningsQry,
		PlatformStats:       statsQry,
		VerifyCertificate:   verifyQry,
		LearnerCertificates: certificatesQry,

		Certificates:        certificates,
		CertificateRenderer: renderer,
		HealthChecker:       &healthChecker{db: dbConn, cache: cache},
		Logger:              log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 10. START + GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := server.StartAsync()

	log.Info("edulearn platform is running",
		logger.String("address", httpCfg.Address()),
		logger.Bool("postgres", dbConn != nil),
		logger.Bool("redis", cache != nil),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", logger.Err(err))
	}

	log.Info("shutdown complete")
	return nil
}

// healthChecker reports liveness of the backing services the process was
// actually configured with. Absent services are omitted, not failed.
type healthChecker struct {
	db    *postgres.Connection
	cache *rediscache.Cache
}

func (h *healthChecker) Check(ctx context.Context) map[string]error {
	out := make(map[string]error)
	if h.db != nil {
		out["postgres"] = h.db.Ping(ctx)
	}
	if h.cache != nil {
		out["redis"] = h.cache.Ping(ctx)
	}
	return out
}
