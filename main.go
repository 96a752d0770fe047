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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/taskhub/taskhub-api/handlers"
	"github.com/taskhub/taskhub-api/internal/auth"
	"github.com/taskhub/taskhub-api/internal/config"
	"github.com/taskhub/taskhub-api/internal/database"
	"github.com/taskhub/taskhub-api/internal/identity"
	"github.com/taskhub/taskhub-api/internal/projects"
	"github.com/taskhub/taskhub-api/internal/sessions"
	"github.com/taskhub/taskhub-api/internal/storage"
	"github.com/taskhub/taskhub-api/internal/tasks"
	"github.com/taskhub/taskhub-api/internal/telemetry"
	"github.com/taskhub/taskhub-api/internal/tokens"
	"github.com/taskhub/taskhub-api/internal/users"
	"github.com/taskhub/taskhub-api/pkg/logger"
	"github.com/taskhub/taskhub-api/pkg/metrics"
	"github.com/taskhub/taskhub-api/pkg/middleware"
)

// repositories groups the persistence backends chosen at startup.
type repositories struct {
	users    users.UserRepository
	projects projects.Repository
	tasks    tasks.Repository
	sessions sessions.Repository
}

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: env=%s firebase=%v mongo=%v redis=%v minio=%v", cfg.Server.Environment,
		cfg.Firebase.ProjectID != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Storage.Endpoint != "")
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.NewProvider(ctx, cfg.Telemetry, os.Stdout)
	if err != nil {
		logger.Warnf("tracing disabled: %v", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	checks := map[string]handlers.Check{}

	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
		} else {
			logger.Infof("connected to Redis: %s", addr)
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		defer func() { _ = rdb.Close() }()
	}

	repos := repositories{
		users:    users.NewMemoryRepository(),
		projects: projects.NewMemoryRepository(),
		tasks:    tasks.NewMemoryRepository(),
		sessions: sessions.NewMemoryRepository(),
	}
	if cfg.MongoDB.URI != "" {
		client := connectMongo(ctx, cfg.MongoDB)
		defer func() { _ = client.Disconnect(context.Background()) }()
		db := client.Database(cfg.MongoDB.Database)
		if err := database.EnsureIndexes(ctx, db); err != nil {
			logger.Warnf("failed to ensure indexes: %v", err)
		}
		repos = repositories{
			users:    users.NewMongoUserRepository(db.Collection(database.UsersCollection)),
			projects: projects.NewMongoRepository(db.Collection(database.ProjectsCollection)),
			tasks:    tasks.NewMongoRepository(db.Collection(database.TasksCollection)),
			sessions: sessions.NewMongoRepository(db.Collection(database.SessionsCollection)),
		}
		checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	} else {
		logger.Warnf("MONGODB_URI not set; using in-memory repositories (data is lost on restart)")
	}

	// Redis-backed sessions take precedence when Redis is configured
	var denylist sessions.Denylist = sessions.NoopDenylist{}
	if rdb != nil {
		repos.sessions = sessions.NewRedisRepository(rdb, "session:")
		denylist = sessions.NewRedisDenylist(rdb)
		logger.Infof("using Redis for refresh sessions and the token denylist")
	} else {
		logger.Warnf("Redis not configured; logout cannot revoke access tokens before they expire")
	}

	userSvc := users.NewService(repos.users)
	projectSvc := projects.NewService(repos.projects, userSvc)
	taskSvc := tasks.NewService(repos.tasks, userSvc, projectSvc)

	store, err := storage.NewMinIOStorage(ctx, cfg.Storage)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		logger.Infof("MINIO_ENDPOINT not set; task attachments disabled")
	case err != nil:
		logger.Warnf("failed to initialize object storage, task attachments disabled: %v", err)
	default:
		taskSvc = taskSvc.WithStore(store, cfg.Storage.PresignTTL)
	}

	verifier := newVerifier(ctx, cfg.Firebase)
	issuer := tokens.NewIssuer(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	authSvc := auth.NewService(verifier, userSvc, issuer,
		auth.WithSessions(sessions.NewService(repos.sessions, cfg.JWT.RefreshTokenTTL)),
		auth.WithDenylist(denylist),
	)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	router := handlers.NewRouter(handlers.Deps{
		Config:        cfg,
		Auth:          authSvc,
		Users:         userSvc,
		Projects:      projectSvc,
		Tasks:         taskSvc,
		Authenticator: middleware.NewAuthenticator(issuer, userSvc, denylist),
		Redis:         rdb,
		Checks:        checks,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(router, cfg.Telemetry.ServiceName),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting taskhub-api on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// connectMongo retries to tolerate startup races with the database container.
func connectMongo(ctx context.Context, cfg config.MongoDBConfig) *mongo.Client {
	client, err := database.ConnectWithRetry(ctx, cfg.URI, cfg.Timeout, 5, func(attempt int, err error) {
		logger.Warnf("attempt %d/5: failed to connect to MongoDB: %v", attempt, err)
	})
	if err != nil {
		logger.Fatalf("could not connect to MongoDB: %v", err)
	}
	logger.Infof("connected to MongoDB database %q", cfg.Database)
	return client
}

// newVerifier builds the Firebase verifier. With ALLOW_INSECURE_TOKEN the ID
// token signature is not checked (integration runs only).
func newVerifier(ctx context.Context, cfg config.FirebaseConfig) *identity.FirebaseVerifier {
	var tv identity.TokenVerifier
	switch {
	case cfg.AllowInsecureToken:
		logger.Warn("enabling insecure ID token verifier (integration mode)")
		tv = identity.NewInsecureVerifier()
	case cfg.ProjectID != "":
		v, err := identity.NewOIDCVerifier(ctx, identity.FirebaseIssuer(cfg.ProjectID), cfg.ProjectID)
		if err != nil {
			logger.Fatalf("failed to initialize Firebase token verifier: %v", err)
		}
		tv = v
	default:
		logger.Fatalf("FIREBASE_PROJECT_ID is required unless ALLOW_INSECURE_TOKEN=true")
	}
	if cfg.APIKey == "" {
		logger.Warnf("FIREBASE_API_KEY not set; email/password login will be rejected")
	}
	return identity.NewFirebaseVerifier(tv, cfg.APIKey, identity.WithToolkitURL(cfg.IdentityToolkitURL))
}
