package middleware

import (
	"context"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"reactive-user-service/internal/adapter/ratelimit"
	"reactive-user-service/pkg/metrics"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

// mockHandler is a simple handler that returns a fixed response
func mockHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return "success", nil
}

func peerContext(ip string) context.Context {
	addr, _ := net.ResolveTCPAddr("tcp", ip+":12345")
	return peer.NewContext(context.Background(), &peer.Peer{Addr: addr})
}

var healthCheck = &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

func TestRateLimiter_WithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)

	limiter := ratelimit.New(client, ratelimit.Config{RequestsPerSecond: 10, BurstCapacity: 10})
	interceptor := NewRateLimiter(limiter, nil, zaptest.NewLogger(t)).UnaryInterceptor()
	ctx := peerContext("127.0.0.1")

	// Make 5 requests (within limit of 10)
	for i := 0; i < 5; i++ {
		resp, err := interceptor(ctx, nil, healthCheck, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiter_ExceedLimit(t *testing.T) {
	client, mr := setupTestRedis(t)

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	limiter := ratelimit.New(client, ratelimit.Config{RequestsPerSecond: 0.01, BurstCapacity: 3})
	interceptor := NewRateLimiter(limiter, m, zaptest.NewLogger(t)).UnaryInterceptor()
	ctx := peerContext("127.0.0.1")

	for i := 0; i < 3; i++ {
		_, err := interceptor(ctx, nil, healthCheck, mockHandler)
		require.NoError(t, err)
	}

	resp, err := interceptor(ctx, nil, healthCheck, mockHandler)
	assert.Nil(t, resp)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.ResourceExhausted, st.Code())
	assert.Contains(t, st.Message(), "rate limit exceeded")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited.WithLabelValues("grpc")))

	assert.True(t, mr.Exists("ratelimit:tb:grpc:/grpc.health.v1.Health/Check:127.0.0.1"))
}

func TestRateLimiter_ForwardedClient(t *testing.T) {
	client, _ := setupTestRedis(t)

	limiter := ratelimit.New(client, ratelimit.Config{RequestsPerSecond: 0.01, BurstCapacity: 1})
	interceptor := NewRateLimiter(limiter, nil, zaptest.NewLogger(t)).UnaryInterceptor()

	first := metadata.NewIncomingContext(peerContext("10.0.0.1"), metadata.Pairs("x-forwarded-for", "203.0.113.7"))
	second := metadata.NewIncomingContext(peerContext("10.0.0.1"), metadata.Pairs("x-forwarded-for", "203.0.113.8"))

	_, err := interceptor(first, nil, healthCheck, mockHandler)
	require.NoError(t, err)
	_, err = interceptor(second, nil, healthCheck, mockHandler)
	require.NoError(t, err, "different forwarded clients use different buckets")

	_, err = interceptor(first, nil, healthCheck, mockHandler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestRateLimiter_FailOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	limiter := ratelimit.New(client, ratelimit.Config{RequestsPerSecond: 1, BurstCapacity: 1})
	interceptor := NewRateLimiter(limiter, nil, zaptest.NewLogger(t)).UnaryInterceptor()

	resp, err := interceptor(peerContext("127.0.0.1"), nil, healthCheck, mockHandler)
	require.NoError(t, err)
	assert.Equal(t, "success", resp)
}

func TestRateLimiter_Disabled(t *testing.T) {
	interceptor := NewRateLimiter(nil, nil, zaptest.NewLogger(t)).UnaryInterceptor()

	for i := 0; i < 10; i++ {
		resp, err := interceptor(context.Background(), nil, healthCheck, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "127.0.0.1", clientIP(peerContext("127.0.0.1")))
	assert.Equal(t, "unknown", clientIP(context.Background()))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-real-ip", "198.51.100.1"))
	assert.Equal(t, "198.51.100.1", clientIP(ctx))
}
