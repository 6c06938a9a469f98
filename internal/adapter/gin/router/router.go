package router

import (
	"context"
	_ "embed"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"user-service/internal/adapter/gin/handler"
	"user-service/internal/adapter/gin/middleware"
	grpcmiddleware "user-service/internal/adapter/grpc/middleware"
	"user-service/internal/metrics"
)

//go:embed openapi.json
var openAPIDoc []byte

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// DefaultHealthTimeout bounds each dependency check on /health.
const DefaultHealthTimeout = 2 * time.Second

// Options carries the optional collaborators of the router.
type Options struct {
	RateLimiter   *grpcmiddleware.RateLimiter
	Metrics       *metrics.Metrics
	Checks        map[string]HealthCheck
	HealthTimeout time.Duration // per check, DefaultHealthTimeout when zero
	ServiceName   string

	// TrustedProxies may set X-Forwarded-For and X-Real-IP. None when empty.
	TrustedProxies []string
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(userHandler *handler.UserHandler, opts Options, log *zap.Logger) *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		log.Warn("invalid trusted proxies, forwarding headers are ignored", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	// Global middleware
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Metrics(opts.Metrics))

	router.GET("/health", health(opts))

	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	router.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openAPIDoc)
	})
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))

	// API v1 routes
	v1 := router.Group("/v1", middleware.RateLimiter(opts.RateLimiter, log))
	{
		users := v1.Group("/users")
		{
			users.GET("", userHandler.ListUsers)
			users.POST("", userHandler.CreateUser)
			users.GET("/:id", userHandler.GetUser)
			users.PUT("/:id", userHandler.UpdateUser)
			users.PATCH("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}
	}

	return router
}

func health(opts Options) gin.HandlerFunc {
	timeout := opts.HealthTimeout
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}

	return func(c *gin.Context) {
		status := http.StatusOK
		checks := gin.H{}
		for name, check := range opts.Checks {
			if err := runCheck(c.Request.Context(), check, timeout); err != nil {
				status = http.StatusServiceUnavailable
				checks[name] = err.Error()
				continue
			}
			checks[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":  state,
			"service": opts.ServiceName,
			"checks":  checks,
		})
	}
}

func runCheck(ctx context.Context, check HealthCheck, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return check(ctx)
}
