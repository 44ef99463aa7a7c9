package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	ginrouter "reactive-user-service/internal/adapter/gin/router"
)

// SetupGinServer creates and configures the Gin REST API server
func SetupGinServer(deps Dependencies, ginAddr string, l *zap.Logger) (*http.Server, error) {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := ginrouter.SetupRouter(deps.UserHandler, ginrouter.Options{
		ServiceName:     deps.Config.Logger.ServiceName,
		SwaggerSpecPath: deps.Config.App.SwaggerSpecPath,
		Limiter:         deps.Limiter,
		Metrics:         deps.Metrics,
		Health:          deps.Store,
	}, l)
	if err != nil {
		return nil, err
	}

	l.Info("Gin REST API configured", zap.String("address", ginAddr))
	if deps.Config.App.SwaggerSpecPath != "" {
		l.Info("Swagger UI available at", zap.String("url", "http://localhost"+ginAddr+"/swagger/index.html"))
	}

	return &http.Server{
		Addr:              ginAddr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}, nil
}
