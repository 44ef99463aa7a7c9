package router

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"reactive-user-service/internal/adapter/gin/handler"
	"reactive-user-service/internal/adapter/gin/middleware"
	"reactive-user-service/internal/adapter/ratelimit"
	"reactive-user-service/pkg/metrics"
	"reactive-user-service/pkg/validation"
)

// SwaggerSpecRoute serves the OpenAPI document read by the Swagger UI
const SwaggerSpecRoute = "/docs/user.swagger.json"

const healthTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the optional collaborators of the router. Nil fields disable
// the matching feature.
type Options struct {
	ServiceName     string
	SwaggerSpecPath string              // file served at SwaggerSpecRoute
	Limiter         *ratelimit.Limiter  // rate limiting
	Metrics         *metrics.Metrics    // request metrics
	Gatherer        prometheus.Gatherer // /metrics source, defaults to the global registry
	Health          Pinger              // /health store check
}

var registerOnce sync.Once

// RegisterValidation replaces gin's binding validator with one that reports
// every violated rule of a field.
func RegisterValidation() {
	registerOnce.Do(func() {
		binding.Validator = validation.NewWithTag("binding")
	})
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(userHandler *handler.UserHandler, opts Options, log *zap.Logger) (*gin.Engine, error) {
	RegisterValidation()

	router := gin.New()

	// Global middleware. Recovery sits inside the access log and metrics so a
	// panicked request is still recorded with its 500.
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	if opts.Metrics != nil {
		router.Use(middleware.Metrics(opts.Metrics))
	}
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RateLimiter(opts.Limiter, opts.Metrics, log))
	router.Use(middleware.ErrorHandler(log))

	router.GET("/health", healthHandler(opts))

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if opts.SwaggerSpecPath != "" {
		router.StaticFile(SwaggerSpecRoute, opts.SwaggerSpecPath)
		router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(SwaggerSpecRoute))))
	}

	users := router.Group("/users")
	{
		users.POST("", userHandler.CreateUser)
		users.GET("", userHandler.ListUsers)
		users.GET("/:id", userHandler.GetUser)
		users.PATCH("/:id", userHandler.UpdateUser)
		users.DELETE("/:id", userHandler.DeleteUser)
	}

	return router, nil
}

func healthHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()

			if err := opts.Health.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": opts.ServiceName,
					"error":   err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": opts.ServiceName,
		})
	}
}
