package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/clientportal/internal/activity"
	"github.com/2beens/clientportal/internal/auth"
	"github.com/2beens/clientportal/internal/config"
	"github.com/2beens/clientportal/internal/db"
	"github.com/2beens/clientportal/internal/login"
	"github.com/2beens/clientportal/internal/middleware"
	"github.com/2beens/clientportal/internal/portal"
	"github.com/2beens/clientportal/internal/pwa"
	"github.com/2beens/clientportal/internal/telemetry/metrics"
	"github.com/2beens/clientportal/internal/telemetry/tracing"
	"github.com/2beens/clientportal/pkg"
)

const maxRequestBodyBytes = 1 << 20

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config  *config.Config
	dbPool  *pgxpool.Pool
	content *portal.Content

	redisClient   *redis.Client
	sessionStore  *auth.RedisStore // nil when redis is disabled
	authService   *auth.Service
	profileIssuer *middleware.ProfileIssuer
	activityRepo  activity.Repo
	recorder      *activity.Recorder
	pwaDismissals pwa.DismissalStore

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	RedisPassword           string
	DBPassword              string
	ProfileSecret           string
	IpInfoAPIKey            string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	content, err := portal.LoadContent()
	if err != nil {
		return nil, fmt.Errorf("load portal content: %w", err)
	}

	profileIssuer, err := middleware.NewProfileIssuer(params.ProfileSecret, cfg.SecureCookies)
	if err != nil {
		return nil, fmt.Errorf("new profile issuer: %w", err)
	}

	var (
		dbPool          *pgxpool.Pool
		extraCollectors []prometheus.Collector
	)
	if cfg.ActivityLogOn {
		dbPool, err = db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			DBUser:         cfg.PostgresUser,
			DBPassword:     params.DBPassword,
			TracingEnabled: params.HoneycombTracingEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}

		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}

		extraCollectors = append(extraCollectors, pgxpoolprometheus.NewCollector(
			dbPool,
			map[string]string{"db_name": cfg.PostgresDBName},
		))
	}

	promRegistry := metrics.SetupPrometheus(extraCollectors...)
	metricsManager := metrics.NewManager("portal", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	var rdb *redis.Client
	if !cfg.RedisDisabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: params.RedisPassword,
			DB:       0, // use default DB
		})

		rdbStatus := rdb.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		} else {
			log.Debugf("redis ping: %s", rdbStatus.Val())
		}
	} else {
		log.Warnln("redis disabled, sessions and pwa dismissals are kept in memory")
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "clientportal", rdb)
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   5 * time.Second,
	}

	var activityRepo activity.Repo
	if dbPool != nil {
		psqlRepo := activity.NewPsqlRepo(dbPool)
		if err := psqlRepo.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate activity schema: %w", err)
		}
		activityRepo = psqlRepo
	} else {
		activityRepo = activity.NewMemoryRepo()
	}
	recorder := activity.NewRecorder(
		activityRepo,
		activity.NewLocator(params.IpInfoAPIKey, tracedHttpClient),
		0,
	)

	var (
		sessionStore  auth.SessionStore
		redisStore    *auth.RedisStore
		pendingStore  auth.PendingStore
		pwaDismissals pwa.DismissalStore
	)
	if rdb != nil {
		redisStore = auth.NewRedisStore(cfg.SessionTTL.Duration, rdb)
		sessionStore = redisStore
		pendingStore = auth.NewRedisPendingStore(rdb, auth.DefaultPendingTTL)
		pwaDismissals = pwa.NewRedisDismissals(rdb, pwa.DefaultDismissWindow)
	} else {
		sessionStore = auth.NewMemoryStore()
		pendingStore = auth.NewCachePendingStore(1, auth.DefaultPendingTTL)
		pwaDismissals = pwa.NewCacheDismissals(1, pwa.DefaultDismissWindow)
	}

	authService, err := newAuthService(
		cfg,
		auth.NewCachedStore(sessionStore, cfg.SessionCacheSizeMB, cfg.SessionCacheTTL.Duration, cfg.SessionTTL.Duration),
		pendingStore,
		authEventHandler(metricsManager, recorder),
	)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:      cfg,
		dbPool:      dbPool,
		content:     content,
		versionInfo: params.VersionInfo,

		redisClient:   rdb,
		sessionStore:  redisStore,
		authService:   authService,
		profileIssuer: profileIssuer,
		activityRepo:  activityRepo,
		recorder:      recorder,
		pwaDismissals: pwaDismissals,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func newAuthService(
	cfg *config.Config,
	store auth.SessionStore,
	pending auth.PendingStore,
	onEvent func(ctx context.Context, event auth.Event),
) (*auth.Service, error) {
	accounts := make([]auth.Account, 0, len(cfg.Accounts))
	for _, acc := range cfg.Accounts {
		role, err := auth.ParseRole(acc.Role)
		if err != nil {
			return nil, fmt.Errorf("account [%s]: %w", acc.Email, err)
		}
		accounts = append(accounts, auth.Account{
			ID:           acc.ID,
			Email:        acc.Email,
			Name:         acc.Name,
			Role:         role,
			Password:     acc.Password,
			PasswordHash: acc.PasswordHash,
		})
	}

	credentials, err := auth.NewCredentialTable(accounts, cfg.PasswordHashCost)
	if err != nil {
		return nil, fmt.Errorf("new credential table: %w", err)
	}

	return auth.NewService(auth.ServiceParams{
		Credentials: credentials,
		OTP:         auth.NewStaticOTP(cfg.OTPCode),
		Store:       store,
		Pending:     pending,
		Delays: auth.Delays{
			Login:  cfg.LoginDelay.Duration,
			OTP:    cfg.OTPDelay.Duration,
			Logout: cfg.LogoutDelay.Duration,
		},
		OnEvent: onEvent,
	}), nil
}

// authEventHandler counts the auth flow outcomes and forwards the events to
// the activity recorder.
func authEventHandler(
	metricsManager *metrics.Manager,
	recorder *activity.Recorder,
) func(ctx context.Context, event auth.Event) {
	return func(ctx context.Context, event auth.Event) {
		switch event.Type {
		case auth.EventLoginFailed:
			outcome := "error"
			switch {
			case errors.Is(event.Err, auth.ErrUnknownEmail):
				outcome = "unknown_email"
			case errors.Is(event.Err, auth.ErrWrongPassword):
				outcome = "wrong_password"
			}
			metricsManager.CounterLoginAttempts.WithLabelValues(outcome).Inc()
		case auth.EventOTPRequired:
			metricsManager.CounterLoginAttempts.WithLabelValues("otp_required").Inc()
		case auth.EventOTPFailed:
			metricsManager.CounterOTPFailures.Inc()
		case auth.EventSignedIn:
			metricsManager.CounterSignIns.WithLabelValues(event.Role.String()).Inc()
		case auth.EventSignedOut:
			metricsManager.CounterSignOuts.Inc()
		case auth.EventMalformedSession:
			metricsManager.CounterMalformedSessions.Inc()
		}

		if recorder != nil {
			recorder.HandleAuthEvent(ctx, event)
		}
	}
}

func (s *Server) demoCredentials() []login.DemoCredential {
	if !s.config.ShowDemoCredentials {
		return nil
	}
	var demo []login.DemoCredential
	for _, acc := range s.config.Accounts {
		if acc.Password == "" {
			// only a hash is known
			continue
		}
		demo = append(demo, login.DemoCredential{
			Email:    acc.Email,
			Password: acc.Password,
			Role:     acc.Role,
		})
	}
	return demo
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("portal-router"))

	guard := middleware.NewGuard(s.authService)

	var reqRateLimiter middleware.RequestRateLimiter
	if s.redisClient != nil {
		reqRateLimiter = redis_rate.NewLimiter(s.redisClient)
	}

	demoOTP := ""
	if s.config.ShowDemoCredentials {
		demoOTP = s.config.OTPCode
	}
	loginHandler := login.NewHandler(demoOTP, s.demoCredentials())
	loginHandler.SetupRoutes(r, guard, reqRateLimiter, s.config.LoginRateLimitPerMin, s.metricsManager)

	portalHandler := portal.NewHandler(s.content, s.activityRepo)
	portalHandler.SetupRoutes(r, guard)

	pwaHandler := pwa.NewHandler(s.pwaDismissals, pwa.DefaultDismissWindow)
	pwaHandler.SetupRoutes(r)

	r.HandleFunc("/version", s.handleVersion).Methods("GET").Name("version")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(middleware.LimitAndDrainRequest(maxRequestBodyBytes))
	r.Use(middleware.Profile(s.profileIssuer))
	r.Use(activity.ClientIP())

	return r, nil
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	version := s.versionInfo
	if version == "" {
		version = "unknown"
	}
	pkg.WriteTextResponseOK(w, version)
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	s.recorder.Start()

	if s.sessionStore != nil {
		go func() {
			ticker := time.NewTicker(8 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					removed := s.sessionStore.ScanAndClean(ctx)
					s.metricsManager.CounterSessionsCleaned.Add(float64(removed))
				}
			}
		}()
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	// no more auth events once the http server is down
	s.recorder.Stop()
	log.Debugln("activity recorder stopped")

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
