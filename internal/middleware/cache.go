package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cinetix/showtime-booking/internal/config"
)

// captureWriter tees the handler's response so a successful body can be
// stored after the request completes.  Once the body grows past limit the
// capture is abandoned but the client keeps receiving the response.
type captureWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if !w.overflow {
		if w.buf.Len()+len(p) > w.limit {
			w.overflow = true
			w.buf.Reset()
		} else {
			w.buf.Write(p)
		}
	}
	return w.ResponseWriter.Write(p)
}

// cacheKeyFrom derives the Redis key for a request.  The route strategy
// keys on the registered route pattern so all seat maps share an entry
// per instance only when the raw query is folded in as well.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	req := c.Request()
	var parts []string
	switch cfg.KeyStrategy {
	case "path":
		parts = []string{req.Method, req.URL.Path}
	case "path_query":
		parts = []string{req.Method, req.URL.Path, req.URL.RawQuery}
	case "route":
		parts = []string{req.Method, c.Path()}
	default: // route_query
		parts = []string{req.Method, req.URL.Path, req.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(fmt.Sprint(parts)))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum)
}

// encodePayload packs status, headers and body into one Redis value:
// a 4-byte status, a 4-byte header length, the JSON-encoded headers and
// the raw body.
func encodePayload(status int, hdr http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 8+len(hdrJSON)+len(body))
	out = binary.BigEndian.AppendUint32(out, uint32(status))
	out = binary.BigEndian.AppendUint32(out, uint32(len(hdrJSON)))
	out = append(out, hdrJSON...)
	out = append(out, body...)
	return out, nil
}

func decodePayload(raw []byte) (int, http.Header, []byte, error) {
	if len(raw) < 8 {
		return 0, nil, nil, fmt.Errorf("cache payload too short")
	}
	status := int(binary.BigEndian.Uint32(raw[0:4]))
	hdrLen := int(binary.BigEndian.Uint32(raw[4:8]))
	if len(raw) < 8+hdrLen {
		return 0, nil, nil, fmt.Errorf("cache payload truncated")
	}
	var hdr http.Header
	if err := json.Unmarshal(raw[8:8+hdrLen], &hdr); err != nil {
		return 0, nil, nil, err
	}
	return status, hdr, raw[8+hdrLen:], nil
}

// NewRedisCache caches successful responses of the configured methods in
// Redis.  Seat maps are read far more often than they change, so a short
// TTL takes most of the read load off MySQL without letting stale holds
// linger on screen.  Every Redis failure degrades to serving fresh.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}

			key := cacheKeyFrom(cfg, c)
			ctx, cancel := context.WithTimeout(c.Request().Context(), 200*time.Millisecond)
			raw, err := rdb.Get(ctx, key).Bytes()
			cancel()
			if err == nil {
				if status, hdr, body, derr := decodePayload(raw); derr == nil {
					res := c.Response()
					for k, vs := range hdr {
						if k == "Content-Length" {
							continue
						}
						for _, v := range vs {
							res.Header().Add(k, v)
						}
					}
					res.Header().Set("X-Cache", "HIT")
					res.WriteHeader(status)
					_, werr := res.Write(body)
					return werr
				}
			}

			c.Response().Header().Set("X-Cache", "MISS")
			cw := &captureWriter{
				ResponseWriter: c.Response().Writer,
				limit:          cfg.MaxBodyBytes,
			}
			c.Response().Writer = cw

			if err := next(c); err != nil {
				return err
			}

			if cw.status == http.StatusOK && !cw.overflow {
				payload, perr := encodePayload(cw.status, c.Response().Header().Clone(), cw.buf.Bytes())
				if perr == nil {
					sctx, scancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
					_ = rdb.SetEx(sctx, key, payload, cfg.TTL).Err()
					scancel()
				}
			}
			return nil
		}
	}
}
