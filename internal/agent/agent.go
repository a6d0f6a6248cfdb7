// Package agent assembles one identity agent: its signer, ledger view,
// stores, services, background workers and HTTP router.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"dim/internal/audit"
	"dim/internal/blobstore"
	"dim/internal/category"
	consenthandler "dim/internal/consent/handler"
	consentmetrics "dim/internal/consent/metrics"
	consentservice "dim/internal/consent/service"
	consentstore "dim/internal/consent/store"
	"dim/internal/consent/workers/mirror"
	credentialhandler "dim/internal/credential/handler"
	credentialmetrics "dim/internal/credential/metrics"
	credentialservice "dim/internal/credential/service"
	disclosurecache "dim/internal/disclosure/cache"
	disclosurehandler "dim/internal/disclosure/handler"
	disclosuremetrics "dim/internal/disclosure/metrics"
	disclosureservice "dim/internal/disclosure/service"
	"dim/internal/ledger"
	"dim/internal/ledger/httpledger"
	"dim/internal/ledger/memledger"
	"dim/internal/ledger/view"
	"dim/internal/platform/amqp"
	"dim/internal/platform/config"
	"dim/internal/platform/database"
	"dim/internal/platform/health"
	"dim/internal/platform/kafka"
	"dim/internal/platform/kafka/consumer"
	"dim/internal/platform/metrics"
	"dim/internal/platform/redis"
	"dim/internal/platform/tracer"
	"dim/internal/ratelimit"
	"dim/internal/reconciler"
	sessionhandler "dim/internal/session/handler"
	sessionmetrics "dim/internal/session/metrics"
	sessionservice "dim/internal/session/service"
	sessionstore "dim/internal/session/store"
	"dim/internal/session/token"
	"dim/internal/session/workers/cleanup"
	"dim/internal/signer"
	httptransport "dim/internal/transport/http"
	"dim/migrations"
	"dim/pkg/domain"
	"dim/pkg/platform/circuit"
)

const redisStatsInterval = 15 * time.Second

// Worker is a background loop that runs until its context ends.
type Worker struct {
	Name string
	Run  func(ctx context.Context) error
}

// Agent is the assembled agent.
type Agent struct {
	self    domain.Address
	router  http.Handler
	workers []Worker
	closers []func()
}

func (a *Agent) Address() domain.Address { return a.self }

func (a *Agent) Handler() http.Handler { return a.router }

func (a *Agent) Workers() []Worker { return a.workers }

// Close releases connections in reverse order of acquisition.
func (a *Agent) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Option overrides a collaborator that cfg would otherwise build.
type Option func(*overrides)

type overrides struct {
	ledger ledger.Ledger
	events ledger.EventSource
	blobs  blobstore.Store
}

// WithLedger runs the agent against l, typically a ledger shared with other
// in-process agents. events feeds the reconciler when EVENTS_MODE=memory.
func WithLedger(l ledger.Ledger, events ledger.EventSource) Option {
	return func(o *overrides) {
		o.ledger = l
		o.events = events
	}
}

// WithBlobStore replaces the configured blob store.
func WithBlobStore(b blobstore.Store) Option {
	return func(o *overrides) {
		o.blobs = b
	}
}

// serviceMetrics registers the per-service collectors once per process.
var serviceMetrics = sync.OnceValue(func() metricSet {
	return metricSet{
		credential: credentialmetrics.New(),
		consent:    consentmetrics.New(),
		disclosure: disclosuremetrics.New(),
		session:    sessionmetrics.New(),
	}
})

type metricSet struct {
	credential *credentialmetrics.Metrics
	consent    *consentmetrics.Metrics
	disclosure *disclosuremetrics.Metrics
	session    *sessionmetrics.Metrics
}

// Build wires an agent from cfg. Workers are returned, not started.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger, opts ...Option) (*Agent, error) {
	var o overrides
	for _, opt := range opts {
		opt(&o)
	}
	a := &Agent{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()
	m := serviceMetrics()

	sg, err := newSigner(cfg, log)
	if err != nil {
		return nil, err
	}
	a.self = sg.Address()

	checks := health.New(cfg.Server.Environment)

	var tr tracer.Tracer = tracer.NewNoop()
	if cfg.Tracing {
		tr = tracer.NewOTel()
	}

	var (
		pool *database.Pool
		rc   *redis.Client
	)
	if cfg.Database.URL != "" {
		pool, err = database.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, func() { _ = pool.Close() })
		if err := migrations.Up(ctx, pool.DB()); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		checks.RegisterCheck("postgres", dependencyCheck("postgres", pool.Health))
	}
	if cfg.Redis.URL != "" {
		rc, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rc.Close() })
		checks.RegisterCheck("redis", dependencyCheck("redis", rc.Health))
		a.workers = append(a.workers, Worker{Name: "redis-pool-stats", Run: func(ctx context.Context) error {
			rc.RunPoolStats(ctx, redisStatsInterval)
			return nil
		}})
	}

	// ledger and its cached view
	var (
		lg     ledger.Ledger
		events ledger.EventSource
	)
	switch {
	case o.ledger != nil:
		lg, events = o.ledger, o.events
	case cfg.Ledger.Mode == config.ModeHTTP:
		lg = httpledger.New(httpledger.Config{BaseURL: cfg.Ledger.URL, Timeout: cfg.Ledger.Timeout}, sg)
	default:
		admin := a.self
		if cfg.Signer.AdminAddress != "" {
			if admin, err = domain.ParseAddress(cfg.Signer.AdminAddress); err != nil {
				return nil, fmt.Errorf("ADMIN_ADDRESS: %w", err)
			}
		}
		mem := memledger.New(admin)
		lg, events = mem, mem
	}
	var viewCache view.Cache = view.NewMemoryCache()
	if rc != nil {
		viewCache = view.NewRedisCache(rc.Client, "dim:view:"+a.self.String())
	}
	ledgerView := view.New(lg, viewCache, view.WithLogger(log))

	// blobs
	var blobs blobstore.Store
	switch {
	case o.blobs != nil:
		blobs = o.blobs
	case cfg.Blob.Mode == config.ModeRedis:
		blobs = blobstore.NewRedisStore(rc.Client)
	case cfg.Blob.Mode == config.ModeHTTP:
		blobs = blobstore.NewHTTPStore(blobstore.HTTPConfig{
			BaseURL:    cfg.Blob.URL,
			HTTPClient: &http.Client{Timeout: cfg.Blob.Timeout},
		})
	default:
		blobs = blobstore.NewInMemoryStore()
	}
	blobs = blobstore.NewTraced(blobs, tr)

	// audit
	var auditStore audit.Store = audit.NewInMemoryStore()
	if cfg.Audit.Store == config.ModePostgres {
		auditStore = audit.NewPostgresStore(pool.DB())
	}
	auditor := audit.NewPublisher(auditStore,
		audit.WithAsyncBuffer(cfg.Audit.BufferSize),
		audit.WithPublisherLogger(log),
	)
	a.closers = append(a.closers, auditor.Close)

	// proof cache, shared by disclosure, consent and the reconciler
	var proofs disclosureservice.ProofCache = disclosurecache.NewMemoryCache()
	if rc != nil {
		proofs = disclosurecache.NewRedisCache(rc.Client, log)
	}

	credentials := credentialservice.New(lg, ledgerView,
		credentialservice.WithBlobReader(blobs),
		credentialservice.WithAuditor(auditor),
		credentialservice.WithMetrics(m.credential),
		credentialservice.WithLogger(log),
		credentialservice.WithTracer(tr),
		credentialservice.WithLedgerTimeout(cfg.Ledger.Timeout),
	)

	var consentBacking consentservice.Store
	var consentTx consentservice.ConsentStoreTx
	if cfg.Consent.Store == config.ModePostgres {
		consentBacking = consentstore.NewPostgres(pool.DB())
		consentTx = consentservice.NewPostgresTx(pool.DB())
	} else {
		mem := consentstore.New()
		consentBacking = mem
		consentTx = consentservice.NewShardedTx(mem)
	}
	consents := consentservice.New(consentBacking, blobs,
		consentservice.WithTx(consentTx),
		consentservice.WithProofInvalidator(proofs),
		consentservice.WithAuditor(auditor),
		consentservice.WithMetrics(m.consent),
		consentservice.WithLogger(log),
		consentservice.WithBlobTimeout(cfg.Blob.Timeout),
		consentservice.WithMirrorBreaker(circuit.New("consent-mirror", circuit.WithCooldown(cfg.Consent.MirrorInterval))),
	)
	mirrorWorker, err := mirror.New(consents, a.self,
		mirror.WithInterval(cfg.Consent.MirrorInterval),
		mirror.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("consent mirror: %w", err)
	}
	a.workers = append(a.workers, Worker{Name: "consent-mirror", Run: mirrorWorker.Start})

	disclosures := disclosureservice.New(consents, credentials, sg,
		disclosureservice.WithProofCache(proofs),
		disclosureservice.WithAuditor(auditor),
		disclosureservice.WithMetrics(m.disclosure),
		disclosureservice.WithLogger(log),
		disclosureservice.WithTracer(tr),
		disclosureservice.WithReplayWindow(cfg.Proof.MaxAge, cfg.Proof.MaxSkew),
	)

	// relying-party login
	tokens := token.NewService(cfg.Session.SigningKey, cfg.Session.Issuer, cfg.Session.Audience, cfg.Session.TTL)
	tokens.SetEnv(cfg.Server.Environment)
	var sessionBacking sessionservice.Store = sessionstore.NewInMemory()
	if cfg.Session.Store == config.ModeRedis {
		sessionBacking = sessionstore.NewRedis(rc.Client)
	}
	sessions := sessionservice.New(sessionBacking, credentials, tokens,
		sessionservice.WithAuditor(auditor),
		sessionservice.WithMetrics(m.session),
		sessionservice.WithLogger(log),
		sessionservice.WithChallengeTTL(cfg.Session.ChallengeTTL),
		sessionservice.WithMaxSkew(cfg.Proof.MaxSkew),
	)
	sweeper, err := cleanup.New(sessions,
		cleanup.WithInterval(cfg.Session.SweepInterval),
		cleanup.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("session cleanup: %w", err)
	}
	a.workers = append(a.workers, Worker{Name: "session-cleanup", Run: sweeper.Start})

	// event reconciliation
	rec := reconciler.New(a.self, ledgerView,
		reconciler.WithProofInvalidator(proofs),
		reconciler.WithLogger(log),
	)
	src, err := eventSource(ctx, cfg, events, checks, log, a)
	if err != nil {
		return nil, err
	}
	if src != nil {
		a.workers = append(a.workers, Worker{Name: "reconciler", Run: func(ctx context.Context) error {
			return rec.Run(ctx, src)
		}})
	}

	authLimit, verifyLimit := rateLimits(cfg.RateLimit, rc, log, a)

	disclosureRoutes := disclosurehandler.New(disclosures, a.self, log)
	a.router = httptransport.NewRouter(httptransport.Config{
		Logger: log,
		Health: checks,
		Public: []httptransport.Routes{category.NewHandler()},
		Management: []httptransport.Routes{
			consenthandler.New(consents, sg, log),
			disclosureRoutes,
			credentialhandler.New(credentials, blobs, a.self, log),
		},
		Verifiers:   []httptransport.PublicRoutes{disclosureRoutes},
		Sessions:    sessionhandler.New(sessions, log),
		Tokens:      tokens,
		Revocations: sessions,
		AuthLimit:   authLimit,
		VerifyLimit: verifyLimit,
		CORSOrigins: cfg.Server.CORSOrigins,
		AdminToken:  cfg.Server.AdminToken,
	})

	ok = true
	return a, nil
}

// rateLimits returns the login and verification throttles, or nils when
// rate limiting is off.
func rateLimits(cfg config.RateLimit, rc *redis.Client, log *slog.Logger, a *Agent) (auth, verify func(http.Handler) http.Handler) {
	var store ratelimit.Store
	switch cfg.Store {
	case config.ModeRedis:
		store = ratelimit.NewRedisStore(rc.Client)
	case config.ModeMemory:
		mem := ratelimit.NewMemoryStore()
		a.workers = append(a.workers, Worker{Name: "ratelimit-sweeper", Run: func(ctx context.Context) error {
			return mem.RunSweeper(ctx, cfg.Window)
		}})
		store = mem
	default:
		return nil, nil
	}
	auth = ratelimit.New(store, ratelimit.Policy{Class: "auth", Limit: cfg.AuthLimit, Window: cfg.Window}, ratelimit.WithLogger(log)).Middleware
	verify = ratelimit.New(store, ratelimit.Policy{Class: "verify", Limit: cfg.VerifyLimit, Window: cfg.Window}, ratelimit.WithLogger(log)).Middleware
	return auth, verify
}

// eventSource picks where ledger events come from. A nil source disables
// reconciliation.
func eventSource(ctx context.Context, cfg config.Config, inProcess ledger.EventSource, checks *health.Handler, log *slog.Logger, a *Agent) (ledger.EventSource, error) {
	switch cfg.Events.Mode {
	case config.ModeMemory:
		return inProcess, nil
	case config.ModeKafka:
		checks.Add(kafka.NewHealthChecker(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic))
		return reconciler.NewKafkaSource(consumer.Config{
			Brokers: cfg.Events.KafkaBrokers,
			GroupID: cfg.Events.KafkaGroup,
			Topics:  []string{cfg.Events.KafkaTopic},
		}, log), nil
	case config.ModeAMQP:
		conn, err := amqp.Dial(ctx, cfg.Events.AMQPURL, log)
		if err != nil {
			return nil, fmt.Errorf("connect amqp: %w", err)
		}
		a.closers = append(a.closers, func() { _ = conn.Close() })
		checks.Add(amqp.NewHealthChecker(conn))
		c, err := amqp.NewConsumer(conn, amqp.Config{
			URL:      cfg.Events.AMQPURL,
			Exchange: cfg.Events.AMQPExchange,
			Queue:    cfg.Events.AMQPQueue,
			Prefetch: 1,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("amqp consumer: %w", err)
		}
		return reconciler.NewAMQPSource(c), nil
	default:
		return nil, nil
	}
}

func newSigner(cfg config.Config, log *slog.Logger) (*signer.KeySigner, error) {
	if cfg.Signer.KeyHex != "" {
		sg, err := signer.NewKeySigner(strings.TrimPrefix(cfg.Signer.KeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("SIGNER_KEY_HEX: %w", err)
		}
		return sg, nil
	}
	sg, err := signer.GenerateKeySigner()
	if err != nil {
		return nil, fmt.Errorf("generate signer: %w", err)
	}
	log.Warn("SIGNER_KEY_HEX not set, using an ephemeral key", "address", sg.Address())
	return sg, nil
}

// dependencyCheck adapts a health function and records the dependency gauge.
func dependencyCheck(name string, fn func(ctx context.Context) error) health.CheckFunc {
	return func(ctx context.Context) error {
		err := fn(ctx)
		metrics.DependencyUp(name, err == nil)
		return err
	}
}
