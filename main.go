package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tourneyhub/tourneyhub/client-core/handlers"
	"github.com/tourneyhub/tourneyhub/client-core/internal/activity"
	"github.com/tourneyhub/tourneyhub/client-core/internal/archive"
	"github.com/tourneyhub/tourneyhub/client-core/internal/config"
	"github.com/tourneyhub/tourneyhub/client-core/internal/database"
	"github.com/tourneyhub/tourneyhub/client-core/internal/identity"
	"github.com/tourneyhub/tourneyhub/client-core/internal/prefs"
	"github.com/tourneyhub/tourneyhub/client-core/internal/profiles"
	"github.com/tourneyhub/tourneyhub/client-core/internal/roles"
	"github.com/tourneyhub/tourneyhub/client-core/internal/session"
	"github.com/tourneyhub/tourneyhub/client-core/pkg/logger"
	"github.com/tourneyhub/tourneyhub/client-core/pkg/metrics"
	"github.com/tourneyhub/tourneyhub/client-core/pkg/middleware"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.Log.Dev {
		logger.SetOutput(os.Stdout, true)
	}
	logger.Init(cfg.Log.Level)
	defer func() { _ = logger.Sync() }()
	logger.Infof("config loaded: mongo=%v redis=%v oidc=%v control=%q",
		cfg.MongoDB.URI != "", cfg.Redis.Addr() != "", cfg.Identity.Issuer != "", cfg.Control.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)
	clock := clockwork.NewRealClock()

	// MongoDB-backed profiles and activity log; memory repos otherwise.
	var profileRepo profiles.Repository = profiles.Unavailable(errors.New("MONGODB_URI not set"))
	var activityRepo activity.Repository = activity.NewMemoryRepository()
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, cfg.MongoDB.ConnectAttempts)
		if err != nil {
			logger.Warnf("MongoDB unavailable, sessions fall back to spectator: %v", err)
			profileRepo = profiles.Unavailable(err)
		} else {
			defer disconnectMongo(client)
			db := client.Database(cfg.MongoDB.Database)
			profileRepo = profiles.NewMongoRepository(db.Collection(cfg.MongoDB.ProfilesCollection))
			mongoActivity := activity.NewMongoRepository(db.Collection(cfg.MongoDB.ActivityCollection))
			if err := mongoActivity.EnsureIndexes(ctx); err != nil {
				logger.Warnf("activity index setup failed, listings use the unordered fallback: %v", err)
			}
			activityRepo = mongoActivity
			logger.Infof("connected to MongoDB database %s", cfg.MongoDB.Database)
		}
	}

	// Redis-backed preferences (remembered email, persisted id token).
	var prefStore prefs.Store = prefs.NewMemoryStore(prefs.WithClock(clock))
	var redisClient *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		rc, err := database.ConnectRedis(ctx, addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warnf("Redis unavailable, preferences are kept in memory: %v", err)
		} else {
			redisClient = rc
			defer rc.Close()
			prefStore = prefs.NewRedisStore(rc, cfg.Redis.Prefix)
			logger.Infof("using Redis for preferences at %s", addr)
		}
	}

	verifier := buildVerifier(ctx, cfg.Identity)
	provider := identity.NewTokenProvider(verifier, prefStore)

	store := roles.NewStore()
	ctrl := session.NewController(store,
		profiles.NewResolver(profileRepo, cfg.Bootstrap.ProfileFetch),
		provider,
		session.WithTimeout(cfg.Bootstrap.Timeout),
		session.WithClock(clock),
	)
	handle, err := ctrl.Start(ctx, func(p roles.Phase) {
		logger.Infow("session phase changed", "phase", p.String())
	})
	if err != nil {
		logger.Fatalf("failed to start session controller: %v", err)
	}
	defer handle.Cancel()
	provider.Restore(ctx)

	agg := activity.NewAggregator(activityRepo, activity.WithOverFetch(cfg.Activity.PrimaryFactor, cfg.Activity.FallbackFactor))
	if sched := startArchiveScheduler(ctx, cfg.Archive, agg, clock); sched != nil {
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
		}()
	}

	if cfg.Control.Addr == "" {
		logger.Infof("control API disabled")
		<-ctx.Done()
		return
	}

	srv := &http.Server{
		Addr:              cfg.Control.Addr,
		Handler:           newRouter(cfg.Control, redisClient, reg, store, ctrl, provider, prefStore, agg, activity.NewRecorder(activityRepo, activity.WithRecorderClock(clock))),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Infof("control API listening on %s", cfg.Control.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("control API stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("control API shutdown: %v", err)
	}
}

func newRouter(cc config.ControlConfig, rc *redis.Client, reg *prometheus.Registry, store *roles.Store, ctrl *session.Controller,
	provider *identity.TokenProvider, prefStore prefs.Store, agg *activity.Aggregator, rec *activity.Recorder) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	var limiter gin.HandlerFunc
	if cc.RateLimitRedis && rc != nil {
		limiter = middleware.RedisRateLimitMiddleware(rc, cc.SignInRPS, cc.SignInBurst, cc.RateWindow)
	} else {
		limiter = middleware.RateLimitMiddleware(cc.SignInRPS, cc.SignInBurst)
	}

	handlers.RegisterHealth(r, ctrl.Phase)
	handlers.RegisterSwagger(r)
	handlers.NewSessionHandler(store, ctrl, provider, prefStore, rec).Register(r, limiter)
	handlers.NewActivityHandler(agg).Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	return r
}

// buildVerifier prefers OIDC discovery, then the shared-secret emulator, then
// the insecure parser when explicitly allowed.
func buildVerifier(ctx context.Context, ic config.IdentityConfig) identity.Verifier {
	if ic.Issuer != "" && ic.ClientID != "" {
		v, err := identity.NewOIDCVerifier(ctx, ic.Issuer, ic.ClientID)
		if err == nil {
			logger.Infof("using OIDC verifier for %s", ic.Issuer)
			return v
		}
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	}
	if ic.HMACSecret != "" {
		logger.Infof("using shared-secret token verifier")
		return identity.NewHMACVerifier(ic.HMACSecret)
	}
	if ic.AllowInsecure {
		logger.Warnf("enabling insecure token verifier (integration mode)")
		return identity.NewInsecureVerifier()
	}
	logger.Warnf("no token verifier configured; sign-in will fail")
	return nil
}

// startArchiveScheduler returns nil when exports are not configured or the
// bucket cannot be reached.
func startArchiveScheduler(ctx context.Context, ac config.ArchiveConfig, agg *activity.Aggregator, clock clockwork.Clock) *archive.Scheduler {
	if ac.Endpoint == "" || ac.Schedule == "" {
		return nil
	}
	store, err := archive.NewMinIOStore(ctx, archive.MinIOConfig{
		Endpoint:  ac.Endpoint,
		AccessKey: ac.AccessKey,
		SecretKey: ac.SecretKey,
		UseSSL:    ac.UseSSL,
		Bucket:    ac.Bucket,
	})
	if err != nil {
		logger.Warnf("activity archive disabled: %v", err)
		return nil
	}
	sched := archive.NewScheduler(archive.NewExporter(agg, store, archive.WithClock(clock)))
	if err := sched.AddDailyStats(ctx, ac.Schedule); err != nil {
		logger.Warnf("activity archive disabled: %v", err)
		return nil
	}
	sched.Start()
	return sched
}

func disconnectMongo(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Warnf("mongo disconnect: %v", err)
	}
}
