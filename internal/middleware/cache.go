package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/user-account-service/internal/config"
)

// captureWriter captures the response body and status while forwarding
// bytes to the client, so a successful response can be stored after
// the handler ran.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 || cw.size < cw.limit {
		remain := cw.limit - cw.size
		if cw.limit <= 0 || int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else if remain > 0 {
			cw.buf.Write(b[:remain])
		}
		cw.size += int64(len(b))
	}
	return cw.ResponseWriter.Write(b)
}

// cacheKey builds a stable key from the configured prefix, the concrete
// request path and the raw query. The path must be the real URL, not
// the route template: /get-user/1 and /get-user/2 share a template and
// must never share a cache entry. The tail is hashed so odd characters
// in query strings never leak into Redis key syntax.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	tail := c.Request().URL.Path + "?" + c.Request().URL.RawQuery
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// encodeEntry packs [4 bytes status][body]; all cached responses are
// JSON envelopes so no headers need to be preserved.
func encodeEntry(status int, body []byte) []byte {
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	copy(out[4:], body)
	return out
}

func decodeEntry(bs []byte) (status int, body []byte, ok bool) {
	if len(bs) < 4 {
		return 0, nil, false
	}
	return int(binary.BigEndian.Uint32(bs[0:4])), bs[4:], true
}

// ResponseCache returns a middleware that serves matching requests from
// Redis and stores 200 responses with the configured TTL. When caching
// is disabled or rdb is nil (Redis unreachable at boot) it degrades to
// a pass-through.
func ResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}

			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, body, ok := decodeEntry(bs); ok {
					c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			}

			cw := &captureWriter{
				ResponseWriter: c.Response().Writer,
				status:         http.StatusOK,
				limit:          int64(cfg.MaxBodyBytes),
			}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			if cw.status == http.StatusOK && (cw.limit <= 0 || cw.size <= cw.limit) {
				_ = rdb.SetEx(context.Background(), key, encodeEntry(cw.status, cw.buf.Bytes()), ttl).Err()
			}
			return nil
		}
	}
}

// CacheInvalidate returns a middleware that drops every cached entry
// under the configured prefix after a successful mutation, so the
// admin listings never serve a record that was just updated or
// deleted. Best effort, like the cache itself: invalidation errors are
// ignored and a nil client degrades to a pass-through.
func CacheInvalidate(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if c.Response().Status < http.StatusBadRequest {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				invalidatePrefix(ctx, rdb, cfg.Prefix)
			}
			return nil
		}
	}
}

// invalidatePrefix deletes all keys under "<prefix>:".
func invalidatePrefix(ctx context.Context, rdb *redis.Client, prefix string) {
	iter := rdb.Scan(ctx, 0, prefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		_ = rdb.Del(ctx, iter.Val()).Err()
	}
}
