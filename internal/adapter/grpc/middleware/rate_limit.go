package middleware

import (
	"context"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"reactive-user-service/internal/adapter/ratelimit"
	"reactive-user-service/pkg/logger"
	"reactive-user-service/pkg/metrics"
)

// RateLimiter applies the shared token bucket to gRPC unary calls.
type RateLimiter struct {
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewRateLimiter creates a new rate limiter interceptor. A nil limiter disables it.
func NewRateLimiter(limiter *ratelimit.Limiter, m *metrics.Metrics, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		limiter: limiter,
		metrics: m,
		log:     log,
	}
}

// UnaryInterceptor returns a gRPC unary interceptor for rate limiting.
func (rl *RateLimiter) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if rl.limiter == nil {
			return handler(ctx, req)
		}

		clientIP := clientIP(ctx)
		log := logger.WithContext(ctx, rl.log)

		allowed, err := rl.limiter.Allow(ctx, ratelimit.GRPCKey(info.FullMethod, clientIP))
		if err != nil {
			// On Redis error, allow request to proceed (fail open)
			log.Warn("rate limiter redis error, allowing request",
				zap.String("client_ip", clientIP),
				zap.String("method", info.FullMethod),
				zap.Error(err),
			)
			return handler(ctx, req)
		}

		if !allowed {
			cfg := rl.limiter.Config()
			log.Warn("rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.String("method", info.FullMethod),
				zap.Float64("limit", cfg.RequestsPerSecond),
			)
			if rl.metrics != nil {
				rl.metrics.ObserveRateLimited("grpc")
			}
			return nil, status.Errorf(codes.ResourceExhausted,
				"rate limit exceeded: %.2f requests/second (burst capacity: %d)",
				cfg.RequestsPerSecond, cfg.BurstCapacity)
		}

		return handler(ctx, req)
	}
}

// clientIP extracts the client IP address from the gRPC context.
func clientIP(ctx context.Context) string {
	// Proxies forward the original client in metadata
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if xff := md.Get("x-forwarded-for"); len(xff) > 0 {
			return xff[0]
		}
		if xri := md.Get("x-real-ip"); len(xri) > 0 {
			return xri[0]
		}
	}

	if p, ok := peer.FromContext(ctx); ok {
		if tcp, ok := p.Addr.(*net.TCPAddr); ok {
			return tcp.IP.String()
		}
		return p.Addr.String()
	}

	return "unknown"
}
