package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/taskhub/taskhub-api/internal/auth"
	"github.com/taskhub/taskhub-api/internal/config"
	"github.com/taskhub/taskhub-api/internal/policy"
	"github.com/taskhub/taskhub-api/internal/projects"
	"github.com/taskhub/taskhub-api/internal/tasks"
	"github.com/taskhub/taskhub-api/internal/users"
	"github.com/taskhub/taskhub-api/pkg/middleware"
)

// APIPrefix is the canonical API base; LegacyPrefix serves the same routes.
const (
	APIPrefix    = "/api/v1"
	LegacyPrefix = "/api"
)

// Check reports whether a dependency is usable. Used by /ready.
type Check func(ctx context.Context) error

// Deps are the services the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Auth          *auth.Service
	Users         *users.Service
	Projects      *projects.Service
	Tasks         *tasks.Service
	Authenticator *middleware.Authenticator
	// Redis backs the shared rate limiter when RATE_LIMIT_USE_REDIS is set.
	Redis  *redis.Client
	Checks map[string]Check
}

var startTime = time.Now()

// NewRouter builds the gin engine with global middleware, operational
// endpoints and the API mounted under both prefixes.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.RequestLogger(),
		middleware.SecurityHeaders(),
		middleware.CORS(d.Config.CORS.AllowedOrigins),
		middleware.ErrorHandler(),
	)
	r.NoRoute(middleware.NoRoute())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readyHandler(d.Checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterSwagger(r)

	limit := rateLimiter(d.Config.RateLimit, d.Redis)
	for _, base := range []string{APIPrefix, LegacyPrefix} {
		registerAPI(r.Group(base), base, d, limit)
	}
	return r
}

// rateLimiter returns nil when rate limiting is disabled.
func rateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) gin.HandlerFunc {
	if !cfg.Enabled {
		return nil
	}
	if cfg.UseRedis && rdb != nil {
		return middleware.RedisRateLimitMiddleware(rdb, cfg.RPS, cfg.Burst, time.Duration(cfg.WindowSeconds)*time.Second)
	}
	return middleware.RateLimitMiddleware(cfg.RPS, cfg.Burst)
}

func registerAPI(g *gin.RouterGroup, base string, d Deps, limit gin.HandlerFunc) {
	ah := NewAuthHandler(d.Auth, d.Config.Server.CookieSecure)

	// the limiter runs after Protect on authenticated routes so it can key by user
	public := g.Group("/auth")
	if limit != nil {
		public.Use(limit)
	}
	public.POST("/login/email", ah.LoginWithEmail)
	public.POST("/login", ah.LoginWithIDToken)
	public.POST("/refresh", ah.Refresh)

	protected := g.Group("")
	protected.Use(d.Authenticator.Protect())
	if limit != nil {
		protected.Use(limit)
	}
	protected.Use(middleware.Authorize(base, policy.Rules))

	protected.POST("/auth/logout", ah.Logout)
	NewUserHandler(d.Users).Register(protected)
	NewProjectHandler(d.Projects).Register(protected)
	th := NewTaskHandler(d.Tasks)
	th.Register(protected)
	if d.Tasks.AttachmentsEnabled() {
		th.RegisterAttachments(protected)
	}
}

func readyHandler(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}
		for name, check := range checks {
			ok := check(c.Request.Context()) == nil
			deps[name] = ok
			ready = ready && ok
		}
		status, label := http.StatusOK, "ready"
		if !ready {
			status, label = http.StatusServiceUnavailable, "not_ready"
		}
		c.JSON(status, gin.H{"status": label, "deps": deps, "uptime": time.Since(startTime).String()})
	}
}
