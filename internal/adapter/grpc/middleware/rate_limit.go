package middleware

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"user-service/pkg/logger"
)

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	RequestsPerSecond float64 // Bucket refill rate
	BurstCapacity     int     // Maximum tokens held by a bucket
	Enabled           bool

	// TrustedProxies lists the IPs or CIDRs allowed to set
	// x-forwarded-for and x-real-ip. Headers from any other peer are ignored.
	TrustedProxies []string
}

// bucketTTL bounds how long an idle bucket is kept in Redis.
const bucketTTL = 60

// tokenBucket refills a bucket stored as a hash {last_refill, tokens} and
// tries to take one token from it. Returns 1 when the token was taken.
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

// RateLimiter is a Redis backed token bucket shared by the gRPC and HTTP
// transports. It fails open when Redis is unreachable.
type RateLimiter struct {
	client  redis.Scripter
	config  RateLimiterConfig
	trusted []netip.Prefix
	log     *zap.Logger
	now     func() time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(client redis.Scripter, config RateLimiterConfig, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		client:  client,
		config:  config,
		trusted: parseTrusted(config.TrustedProxies, log),
		log:     log,
		now:     time.Now,
	}
}

func parseTrusted(entries []string, log *zap.Logger) []netip.Prefix {
	var out []netip.Prefix
	for _, e := range entries {
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			log.Warn("ignoring invalid trusted proxy", zap.String("entry", e))
			continue
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}

func (rl *RateLimiter) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range rl.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Config returns the limiter configuration.
func (rl *RateLimiter) Config() RateLimiterConfig {
	return rl.config
}

// Allow takes one token from the bucket identified by key. A Redis error
// is returned together with allowed=true.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if rl == nil || !rl.config.Enabled {
		return true, nil
	}

	now := float64(rl.now().UnixMilli()) / 1000
	res, err := tokenBucket.Run(ctx, rl.client, []string{"ratelimit:tb:" + key},
		rl.config.RequestsPerSecond, rl.config.BurstCapacity, now, bucketTTL).Int64()
	if err != nil {
		return true, fmt.Errorf("rate limiter: %w", err)
	}
	return res == 1, nil
}

// UnaryInterceptor returns a gRPC unary interceptor for rate limiting.
// Buckets are keyed by method and client IP.
func (rl *RateLimiter) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if !rl.config.Enabled {
			return handler(ctx, req)
		}

		clientIP := rl.clientIP(ctx)
		allowed, err := rl.Allow(ctx, info.FullMethod+":"+clientIP)
		if err != nil {
			logger.WithContext(ctx, rl.log).Warn("rate limiter redis error, allowing request",
				zap.String("client_ip", clientIP),
				zap.String("method", info.FullMethod),
				zap.Error(err),
			)
			return handler(ctx, req)
		}

		if !allowed {
			logger.WithContext(ctx, rl.log).Warn("rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.String("method", info.FullMethod),
			)
			return nil, status.Errorf(codes.ResourceExhausted,
				"rate limit exceeded: %.2f requests/second (burst capacity: %d)",
				rl.config.RequestsPerSecond, rl.config.BurstCapacity)
		}

		return handler(ctx, req)
	}
}

// clientIP returns the address the bucket is keyed on. Forwarding
// metadata is only honoured when the direct peer is a trusted proxy; the
// x-forwarded-for chain is then walked from the right, skipping trusted hops.
func (rl *RateLimiter) clientIP(ctx context.Context) string {
	peerIP := peerHost(ctx)
	if !rl.isTrusted(peerIP) {
		return peerIP
	}

	md, _ := metadata.FromIncomingContext(ctx)
	var hops []string
	for _, v := range md.Get("x-forwarded-for") {
		hops = append(hops, strings.Split(v, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !rl.isTrusted(hop) {
			return hop
		}
	}
	if xri := md.Get("x-real-ip"); len(xri) > 0 && strings.TrimSpace(xri[0]) != "" {
		return strings.TrimSpace(xri[0])
	}
	return peerIP
}

func peerHost(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr := p.Addr.String()
		if host, _, err := net.SplitHostPort(addr); err == nil {
			return host
		}
		return addr
	}
	return "unknown"
}
