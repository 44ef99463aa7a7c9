package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes per transport
const (
	HTTPKeyPrefix = "ratelimit:tb:http"
	GRPCKeyPrefix = "ratelimit:tb:grpc"
)

// Config holds token bucket settings
type Config struct {
	RequestsPerSecond float64 // refill rate
	BurstCapacity     int     // bucket size
}

// tokenBucket refills the bucket for the elapsed time, then tries to take one
// token. State is {last_refill, tokens} in a hash that expires once a full
// refill would have happened.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
local last_refill = tonumber(bucket[1]) or now
local tokens = tonumber(bucket[2]) or capacity

local elapsed = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', key, 'last_refill', tostring(now), 'tokens', tostring(tokens))
redis.call('EXPIRE', key, ttl)
return allowed
`)

// Limiter is a Redis-backed token bucket shared by the HTTP middleware and the
// gRPC interceptor.
type Limiter struct {
	client redis.Scripter
	cfg    Config
	ttl    int
	now    func() time.Time
}

// New creates a limiter on client.
func New(client redis.Scripter, cfg Config) *Limiter {
	ttl := int(math.Ceil(float64(cfg.BurstCapacity)/cfg.RequestsPerSecond)) + 1
	return &Limiter{
		client: client,
		cfg:    cfg,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Config returns the limiter settings
func (l *Limiter) Config() Config {
	return l.cfg
}

// Allow takes one token from the bucket at key. Callers decide what to do on
// error; both transports let the request through.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(l.now().UnixMicro()) / 1e6

	allowed, err := tokenBucket.Run(ctx, l.client, []string{key},
		l.cfg.RequestsPerSecond,
		l.cfg.BurstCapacity,
		now,
		l.ttl,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return allowed == 1, nil
}

// HTTPKey builds the bucket key for an HTTP client
func HTTPKey(clientIP string) string {
	return fmt.Sprintf("%s:%s", HTTPKeyPrefix, clientIP)
}

// GRPCKey builds the bucket key for a gRPC method and client
func GRPCKey(method, clientIP string) string {
	return fmt.Sprintf("%s:%s:%s", GRPCKeyPrefix, method, clientIP)
}
