package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/inkpad/inkpad/handlers"
	"github.com/inkpad/inkpad/internal/access"
	"github.com/inkpad/inkpad/internal/config"
	"github.com/inkpad/inkpad/internal/database"
	"github.com/inkpad/inkpad/internal/document/repository"
	"github.com/inkpad/inkpad/internal/document/service"
	"github.com/inkpad/inkpad/internal/sessions"
	"github.com/inkpad/inkpad/internal/storage"
	"github.com/inkpad/inkpad/internal/tokens"
	"github.com/inkpad/inkpad/internal/users"
	"github.com/inkpad/inkpad/pkg/logger"
	"github.com/inkpad/inkpad/pkg/metrics"
	"github.com/inkpad/inkpad/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: oidc=%v mongo=%v redis=%v", cfg.OIDC.IssuerURL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS for dev/test; production fronts this with a stricter
	// policy at the proxy.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})

	ctx := context.Background()

	// Redis: session storage, token blacklist and the distributed rate limiter
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis unavailable (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			sessions.SetBlacklistClient(redisClient)
			logger.Infof("connected to redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.RequestsPerSecond > 0 {
		if redisClient != nil {
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, time.Second))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
		}
	}

	// MongoDB: documents, users and (absent Redis) sessions. Without a URI the
	// service runs fully in memory, which is what the integration tests use.
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			mongoClient, err = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if err == nil {
				break
			}
			logger.Warnf("attempt %d/%d: mongo connect: %v", attempt, maxAttempts, err)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if mongoClient != nil {
			defer func() { _ = mongoClient.Disconnect(ctx) }()
		}
	}

	var docStore repository.Store
	var userSvc *users.Service
	var sessionsSvc *sessions.Service

	if redisClient != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(redisClient, "session:"))
	}
	if mongoClient != nil {
		db := mongoClient.Database(cfg.MongoDB.Database)
		docStore = repository.NewMongoStore(db.Collection("documents"))
		userSvc = users.NewService(users.NewMongoUserRepository(db.Collection("users")))
		if sessionsSvc == nil {
			sessionsSvc = sessions.NewService(sessions.NewMongoRepository(db.Collection("sessions")))
		}
	} else {
		logger.Warnf("mongo not configured; using in-memory document store")
		docStore = repository.NewMemoryStore()
	}

	docSvc := service.New(docStore, access.Policy{CollaboratorWrite: cfg.Access.CollaboratorWrite})

	// Access tokens are first-party JWTs minted at login; the verifier also
	// consults the redis blacklist.
	verifier := tokens.NewVerifier(cfg.JWT.Secret)

	if userSvc != nil && sessionsSvc != nil {
		handlers.NewAuthHandler(cfg, userSvc, sessionsSvc).Register(r.Group("/"))
	} else {
		logger.Warnf("auth routes not registered: user/session services unavailable")
	}

	handlers.RegisterDocumentRoutes(r, handlers.NewDocumentHandler(docSvc), verifier)

	if minioCfg := storage.LoadMinIOConfig(); minioCfg.Endpoint != "" {
		objStore, err := storage.NewMinIOStorage(minioCfg)
		if err != nil {
			logger.Warnf("minio unavailable: %v", err)
		} else {
			handlers.RegisterAssetRoutes(r, handlers.NewAssetHandler(objStore), verifier)
		}
	} else {
		logger.Warnf("minio not configured; asset routes disabled")
	}

	handlers.RegisterSwagger(r)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"documents": docStore != nil,
			"sessions":  sessionsSvc != nil,
			"users":     userSvc != nil,
			"redis":     cfg.Redis.Host == "" || redisClient != nil,
		}
		// sessions/users are informational: in-memory deployments run without
		// an identity backend
		ready := deps["documents"] && deps["redis"]
		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting inkpad backend on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
