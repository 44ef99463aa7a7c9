package server

import (
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"reactive-user-service/pkg/logger"
)

// SetupGRPC creates the gRPC server exposing the standard health service.
// Reflection is only registered outside production.
func SetupGRPC(deps Dependencies, l *zap.Logger) (*grpc.Server, *health.Server) {
	grpc_prometheus.EnableHandlingTimeHistogram()

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			deps.GRPCRateLimiter.UnaryInterceptor(),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	if deps.Config.App.Env != "production" {
		reflection.Register(grpcServer)
		l.Debug("gRPC reflection enabled")
	}

	grpc_prometheus.Register(grpcServer)

	return grpcServer, hs
}
