package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cinetix/showtime-booking/internal/config"
)

// tokenBucketScript refills and drains a bucket in one atomic round trip.
// KEYS[1] is the bucket hash, ARGV carries capacity, tokens per refill,
// refill interval in ms, now in ms and the key TTL in seconds.  It
// returns {allowed, tokens_left, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local refill = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil then
  tokens = capacity
  last = now
end

local elapsed = now - last
if elapsed >= interval then
  local cycles = math.floor(elapsed / interval)
  tokens = math.min(capacity, tokens + cycles * refill)
  last = last + cycles * interval
end

local allowed = 0
local retry = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  retry = interval - (now - last)
end

redis.call('HMSET', KEYS[1], 'tokens', tokens, 'last_refill_ms', last)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, tokens, retry}
`)

// buildRateKey scopes the bucket per the configured strategy.  Holds are
// the endpoint worth throttling per user, but anonymous browse traffic
// only carries an IP, so the combined default keys on both plus route.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	route := fmt.Sprintf("route:%s %s", c.Request().Method, c.Path())
	user := "user:" + currentUserID(c)
	addr := "ip:" + c.RealIP()

	var suffix string
	switch cfg.KeyStrategy {
	case "ip":
		suffix = addr
	case "user":
		suffix = user
	case "route":
		suffix = route
	case "ip_user":
		suffix = addr + ":" + user
	case "ip_route":
		suffix = addr + ":" + route
	case "user_route":
		suffix = user + ":" + route
	default: // ip_user_route
		suffix = addr + ":" + user + ":" + route
	}
	return cfg.Prefix + ":" + suffix
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		p, _ := strconv.ParseInt(n, 10, 64)
		return p
	}
	return 0
}

// NewTokenBucket rejects callers that burn through their bucket with 429
// and a Retry-After hint.  Any Redis failure fails open: a degraded
// limiter must never keep a customer from holding seats.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	ttlSecs := int64(cfg.TTL / time.Second)
	if ttlSecs < 1 {
		ttlSecs = 1
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			now := time.Now().UnixMilli()

			res, err := tokenBucketScript.Run(c.Request().Context(), rdb,
				[]string{key},
				cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(), now, ttlSecs,
			).Result()
			if err != nil {
				if cfg.Debug {
					log.Printf("rate limiter unavailable for %s: %v", key, err)
				}
				return next(c)
			}

			vals, ok := res.([]interface{})
			if !ok || len(vals) != 3 {
				return next(c)
			}
			allowed := asInt64(vals[0]) == 1
			remaining := asInt64(vals[1])
			retryAfter := time.Duration(asInt64(vals[2])) * time.Millisecond

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if !allowed {
				secs := int(retryAfter.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "slow down and retry shortly",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}
