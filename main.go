package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pennywise/pennywise/backend/go-services/handlers"
	"github.com/pennywise/pennywise/backend/go-services/internal/auth"
	"github.com/pennywise/pennywise/backend/go-services/internal/config"
	"github.com/pennywise/pennywise/backend/go-services/internal/database"
	"github.com/pennywise/pennywise/backend/go-services/internal/federated"
	"github.com/pennywise/pennywise/backend/go-services/internal/forecast"
	"github.com/pennywise/pennywise/backend/go-services/internal/password"
	"github.com/pennywise/pennywise/backend/go-services/internal/tokens"
	"github.com/pennywise/pennywise/backend/go-services/internal/turnstile"
	"github.com/pennywise/pennywise/backend/go-services/internal/users"
	"github.com/pennywise/pennywise/backend/go-services/pkg/logger"
	"github.com/pennywise/pennywise/backend/go-services/pkg/metrics"
	"github.com/pennywise/pennywise/backend/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal, LOG_FORMAT: console|json
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.SetFormat(os.Getenv("LOG_FORMAT"))
	defer func() { _ = logger.Sync() }()
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "dev-only-insecure-secret"
		logger.Warnf("JWT_SECRET is not set; using an insecure development secret")
	}
	if !cfg.Server.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Credential store: Mongo when configured, memory otherwise
	var store users.Store
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		mongoClient, err = database.Connect(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, database.DefaultRetry)
		if err != nil {
			logger.Fatalf("%v", err)
		}
		logger.Infof("connected to MongoDB (database=%s)", cfg.MongoDB.Database)
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		ms := users.NewMongoStore(mongoClient.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection))
		if err := ms.EnsureIndexes(ctx); err != nil {
			logger.Fatalf("%v", err)
		}
		store = ms
	} else {
		logger.Warnf("MONGODB_URI not set; using in-memory credential store")
		store = users.NewMemoryStore()
	}

	// Optional Redis profile cache for the session guard's lookups
	var loader middleware.IdentityLoader = store
	var redisClient *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis ping failed (%s): %v; user cache disabled", addr, err)
			_ = redisClient.Close()
			redisClient = nil
		} else {
			cached := users.NewCachedStore(store, redisClient, "user:", cfg.Redis.CacheTTL)
			store, loader = cached, cached.Profiles()
			logger.Infof("user cache enabled on %s", addr)
		}
	}

	var verifiers []federated.Verifier
	providerClient := federated.NewHTTPClient()
	if cfg.Google.ClientID != "" {
		gv, err := federated.NewGoogleVerifier(context.Background(), cfg.Google.Issuer, federated.GoogleJWKSURL, cfg.Google.ClientID, providerClient)
		if err != nil {
			logger.Warnf("google sign-in disabled: %v", err)
		} else {
			verifiers = append(verifiers, gv)
		}
	}
	if cfg.Discord.Enabled() {
		verifiers = append(verifiers, federated.NewDiscordVerifier(cfg.Discord.ClientID, cfg.Discord.ClientSecret, cfg.Discord.RedirectURI, cfg.Discord.APIBaseURL, providerClient))
	}
	registry := federated.NewRegistry(verifiers...)

	codec := tokens.NewCodec(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	svc := auth.NewService(store, password.NewHasher(cfg.Password.BcryptCost), codec, registry, forecast.New(cfg.Forecast.WakeURL, cfg.Forecast.WakeTimeout))

	var challenger middleware.Challenger
	if cfg.Turnstile.SecretKey != "" {
		challenger = turnstile.NewClient(cfg.Turnstile.SecretKey, cfg.Turnstile.VerifyURL, nil)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when the configured store and cache answer
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{"store": true, "redis": true}
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if mongoClient != nil {
			deps["store"] = mongoClient.Ping(pingCtx, nil) == nil
		}
		if redisClient != nil {
			deps["redis"] = redisClient.Ping(pingCtx).Err() == nil
		}
		for _, ok := range deps {
			ready = ready && ok
		}
		status, state := http.StatusOK, "ready"
		if !ready {
			status, state = http.StatusServiceUnavailable, "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "providers": registry.Providers(), "uptime": time.Since(startTime).String()})
	})

	api := r.Group("/api")
	handlers.NewAuthHandler(cfg, svc, challenger).Register(api)
	handlers.NewUserHandler(svc, middleware.SessionGuard(codec, loader)).Register(api)
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	logger.Infof("config summary: mongo=%v redis=%v providers=%v turnstile=%v forecast=%v", mongoClient != nil, redisClient != nil, registry.Providers(), challenger != nil, cfg.Forecast.WakeURL != "")

	go func() {
		logger.Infof("starting identity service on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
