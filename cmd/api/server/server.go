package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	ginhandler "reactive-user-service/internal/adapter/gin/handler"
	"reactive-user-service/internal/adapter/gin/router"
	grpcmiddleware "reactive-user-service/internal/adapter/grpc/middleware"
	"reactive-user-service/internal/adapter/ratelimit"
	"reactive-user-service/internal/config"
	"reactive-user-service/pkg/metrics"
)

// Dependencies are the collaborators the servers are built from
type Dependencies struct {
	Config          *config.Config
	UserHandler     *ginhandler.UserHandler
	Limiter         *ratelimit.Limiter
	GRPCRateLimiter *grpcmiddleware.RateLimiter
	Metrics         *metrics.Metrics
	Store           router.Pinger
}

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	Gin    *http.Server
	GRPC   *grpc.Server
	Health *health.Server
}

// New creates a new server instance
func New(deps Dependencies, l *zap.Logger) (*Server, error) {
	cfg := deps.Config

	ginServer, err := SetupGinServer(deps, httpAddress(cfg), l)
	if err != nil {
		return nil, fmt.Errorf("failed to set up Gin server: %w", err)
	}

	grpcServer, hs := SetupGRPC(deps, l)

	return &Server{
		Config: cfg,
		Logger: l,
		Gin:    ginServer,
		GRPC:   grpcServer,
		Health: hs,
	}, nil
}

// Start binds both listeners and serves until both are shut down or one fails.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}

	grpcLis, err := lc.Listen(ctx, "tcp", grpcAddress(s.Config))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}
	httpLis, err := lc.Listen(ctx, "tcp", httpAddress(s.Config))
	if err != nil {
		_ = grpcLis.Close()
		return fmt.Errorf("failed to listen for HTTP: %w", err)
	}

	s.Health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	g, gctx := errgroup.WithContext(ctx)

	// A failing server stops its sibling. Cancellation of ctx is left to Shutdown.
	go func() {
		<-gctx.Done()
		if ctx.Err() == nil {
			s.GRPC.Stop()
			_ = s.Gin.Close()
		}
	}()

	g.Go(func() error {
		s.Logger.Info("gRPC server running", zap.String("address", grpcLis.Addr().String()))
		if err := s.GRPC.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.Logger.Info("Gin REST API running", zap.String("address", httpLis.Addr().String()))
		if err := s.Gin.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gin server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Shutdown stops accepting requests and drains both servers within ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	s.Health.Shutdown()

	s.Logger.Info("shutting down Gin server...")
	if err := s.Gin.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("gin shutdown: %w", err))
	}

	s.Logger.Info("shutting down gRPC server...")
	stopped := make(chan struct{})
	go func() {
		s.GRPC.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.GRPC.Stop()
		errs = append(errs, fmt.Errorf("gRPC graceful stop: %w", ctx.Err()))
	}

	return errors.Join(errs...)
}

// grpcAddress returns the gRPC server address
func grpcAddress(cfg *config.Config) string {
	return ":" + cfg.App.GRPCPort
}

// httpAddress returns the HTTP server address
func httpAddress(cfg *config.Config) string {
	return ":" + cfg.App.HTTPPort
}
