package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"claimdesk/internal/claim/adapters"
	claimhandler "claimdesk/internal/claim/handler"
	"claimdesk/internal/claim/lock"
	claimmetrics "claimdesk/internal/claim/metrics"
	claimsvc "claimdesk/internal/claim/service"
	claimstore "claimdesk/internal/claim/store/claimrequest"
	tokenstore "claimdesk/internal/claim/store/token"
	"claimdesk/internal/directory"
	companystore "claimdesk/internal/directory/store/company"
	userstore "claimdesk/internal/directory/store/user"
	identityhandler "claimdesk/internal/identity/handler"
	identitysvc "claimdesk/internal/identity/service"
	identitystore "claimdesk/internal/identity/store"
	jwttoken "claimdesk/internal/jwt_token"
	"claimdesk/internal/mailer"
	"claimdesk/internal/platform/config"
	"claimdesk/internal/platform/httpserver"
	"claimdesk/internal/platform/logger"
	httpmetrics "claimdesk/internal/platform/metrics"
	"claimdesk/internal/platform/otel"
	"claimdesk/internal/platform/postgres"
	platformredis "claimdesk/internal/platform/redis"
	ratelimitmetrics "claimdesk/internal/ratelimit/metrics"
	ratelimitmw "claimdesk/internal/ratelimit/middleware"
	ratelimitmodels "claimdesk/internal/ratelimit/models"
	"claimdesk/internal/ratelimit/store/bucket"
	"claimdesk/pkg/platform/audit"
	auditkafka "claimdesk/pkg/platform/audit/kafka"
	auditmemory "claimdesk/pkg/platform/audit/store/memory"
	auditpostgres "claimdesk/pkg/platform/audit/store/postgres"
	"claimdesk/pkg/platform/httputil"
	"claimdesk/pkg/platform/middleware/metadata"
	"claimdesk/pkg/platform/middleware/request"
	"claimdesk/pkg/platform/middleware/requesttime"
)

const serviceName = "claimdesk"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("claimdesk stopped", "error", err)
		os.Exit(1)
	}
}

// stores is the persistence selected at startup.
type stores struct {
	claims    claimsvc.ClaimStore
	tokens    claimsvc.TokenStore
	companies interface {
		claimsvc.CompanyStore
		directory.CompanyCreator
	}
	users    claimsvc.UserStore
	accounts identitysvc.AccountStore
	audit    audit.Store
	tx       claimsvc.PromotionTx
}

func newStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*stores, func() error, error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		claims := claimstore.NewInMemory()
		tokens := tokenstore.NewInMemory()
		companies := companystore.NewInMemory()
		users := userstore.NewInMemory()
		return &stores{
			claims:    claims,
			tokens:    tokens,
			companies: companies,
			users:     users,
			accounts:  identitystore.NewInMemory(),
			audit:     auditmemory.NewInMemoryStore(),
			tx: claimsvc.NewInMemoryPromotionTx(claimsvc.InMemoryTxStores{
				Claims: claims, Tokens: tokens, Companies: companies, Users: users,
			}),
		}, func() error { return nil }, nil
	}

	db, err := postgres.Open(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return postgresStores(db), db.Close, nil
}

func postgresStores(db *sql.DB) *stores {
	claims := claimstore.NewPostgres(db)
	tokens := tokenstore.NewPostgres(db)
	companies := companystore.NewPostgres(db)
	users := userstore.NewPostgres(db)
	return &stores{
		claims:    claims,
		tokens:    tokens,
		companies: companies,
		users:     users,
		accounts:  identitystore.NewPostgres(db),
		audit:     auditpostgres.New(db),
		tx: claimsvc.NewPostgresPromotionTx(db, claimsvc.PromotionStores{
			Claims: claims, Tokens: tokens, Companies: companies, Users: users,
		}),
	}
}

// coordination holds the pieces shared across instances through Redis, or
// their process-local stand-ins without it.
type coordination struct {
	locker  claimsvc.Locker
	limiter *ratelimitmw.Middleware
	close   func() error
}

func newCoordination(ctx context.Context, cfg config.Config, reg prometheus.Registerer, log *slog.Logger) (*coordination, error) {
	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	limits := map[ratelimitmodels.EndpointClass]ratelimitmodels.Limit{
		ratelimitmodels.ClassClaims:   {RequestsPerWindow: cfg.RateLimit.ClaimsRequests, Window: cfg.RateLimit.ClaimsWindow},
		ratelimitmodels.ClassIdentity: {RequestsPerWindow: cfg.RateLimit.IdentityRequests, Window: cfg.RateLimit.IdentityWindow},
	}
	opts := []ratelimitmw.Option{
		ratelimitmw.WithDisabled(cfg.RateLimit.Disabled),
		ratelimitmw.WithMetrics(ratelimitmetrics.New(reg)),
	}
	if client == nil {
		log.Warn("REDIS_URL not set, submission lock and rate limits are process-local")
		return &coordination{
			locker:  lock.NewInMemory(),
			limiter: ratelimitmw.New(bucket.NewInMemory(), limits, log, opts...),
			close:   func() error { return nil },
		}, nil
	}
	opts = append(opts, ratelimitmw.WithFallback(bucket.NewInMemory()))
	return &coordination{
		locker:  lock.NewRedis(client.Client),
		limiter: ratelimitmw.New(bucket.NewRedis(client.Client), limits, log, opts...),
		close:   client.Close,
	}, nil
}

func newAuditPublisher(ctx context.Context, cfg config.Config, store audit.Store, log *slog.Logger) (*audit.Publisher, func(), error) {
	brokers := cfg.Kafka.BrokerList()
	if len(brokers) == 0 {
		return audit.NewPublisher(store), func() {}, nil
	}
	sink, err := auditkafka.New(auditkafka.Config{Brokers: brokers, Topic: cfg.Kafka.AuditTopic})
	if err != nil {
		return nil, nil, err
	}
	if err := sink.EnsureTopic(ctx); err != nil {
		sink.Close()
		return nil, nil, err
	}
	log.Info("audit events published to kafka", "topic", cfg.Kafka.AuditTopic)
	return audit.NewPublisher(store, audit.WithSink(sink)), sink.Close, nil
}

func newMailer(cfg config.Config, log *slog.Logger) adapters.Sender {
	if cfg.SMTP.Host == "" {
		log.Warn("SMTP_HOST not set, emails are logged instead of sent")
		return mailer.NewLog(log)
	}
	return mailer.NewSMTP(mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
}

// app is the assembled HTTP surface and the resources behind it.
type app struct {
	handler http.Handler
	close   func()
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger, sender adapters.Sender) (*app, error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	st, closeStores, err := newStores(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}
	closers = append(closers, func() { _ = closeStores() })

	if cfg.Server.SeedDemoData || !cfg.IsProduction() {
		created, err := directory.SeedCompanies(ctx, st.companies, time.Now())
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("seed companies: %w", err)
		}
		log.Info("demo companies seeded", "created", created)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	coord, err := newCoordination(ctx, cfg, reg, log)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	closers = append(closers, func() { _ = coord.close() })

	auditPublisher, closeAudit, err := newAuditPublisher(ctx, cfg, st.audit, log)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	closers = append(closers, closeAudit)

	jwt := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Identity.Issuer, serviceName)
	identity := identitysvc.New(st.accounts, jwt, identitysvc.Config{
		BaseURL:             cfg.Identity.BaseURL,
		VerificationLinkTTL: cfg.Identity.VerificationLinkTTL,
		AccessTokenTTL:      cfg.Identity.AccessTokenTTL,
		BcryptCost:          bcrypt.DefaultCost,
	},
		identitysvc.WithLogger(log),
		identitysvc.WithAuditPublisher(auditPublisher),
	)

	claims := claimsvc.New(claimsvc.Deps{
		Claims:    st.claims,
		Tokens:    st.tokens,
		Companies: st.companies,
		Users:     st.users,
		Identity:  adapters.NewIdentityAdapter(identity),
		Mailer:    adapters.NewMailerAdapter(sender),
		Locker:    coord.locker,
		Tx:        st.tx,
	}, claimsvc.Config{
		SupervisorTokenTTL:  cfg.Claims.SupervisorTokenTTL,
		LockTTL:             cfg.Claims.LockTTL,
		SupervisorVerifyURL: cfg.Claims.PublicBaseURL + "/claims/verify-supervisor",
		BusinessReturnURL:   cfg.Claims.BusinessReturnURL,
	},
		claimsvc.WithLogger(log),
		claimsvc.WithAuditPublisher(auditPublisher),
		claimsvc.WithMetrics(claimmetrics.New(reg)),
	)

	router := chi.NewRouter()
	router.Use(request.RequestID)
	router.Use(request.Recovery(log))
	router.Use(request.Logger(log))
	router.Use(metadata.ClientMetadata)
	router.Use(requesttime.Middleware)
	router.Use(httpmetrics.NewHTTP(reg).Middleware)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.Group(func(r chi.Router) {
		r.Use(coord.limiter.RateLimit(ratelimitmodels.ClassIdentity))
		identityhandler.New(identity, log).Register(r)
	})
	router.Group(func(r chi.Router) {
		r.Use(coord.limiter.RateLimit(ratelimitmodels.ClassClaims))
		claimhandler.New(claims, log, jwttoken.NewJWTServiceAdapter(jwt), cfg.Claims.SupervisorSuccessURL).Register(r)
	})

	return &app{handler: router, close: cleanup}, nil
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	shutdownTracing, err := otel.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	a, err := newApp(ctx, cfg, log, newMailer(cfg, log))
	if err != nil {
		return err
	}
	defer a.close()

	srv := httpserver.New(cfg.Server, a.handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting claimdesk", "addr", cfg.Server.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}
