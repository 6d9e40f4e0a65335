// Package rate limita requests por clave (IP + ruta). Con Redis el límite es
// compartido entre réplicas; sin Redis cada proceso lleva su propio bucket.
package rate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Result es el veredicto para un request.
type Result struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter decide si un request con key puede pasar.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Config define el límite por ventana.
type Config struct {
	Max    int
	Window time.Duration
	Prefix string // solo Redis; "" = "rl:"
}

// New elige el backend: Redis si hay cliente, si no en memoria.
func New(cfg Config, client *rdb.Client) Limiter {
	if cfg.Max <= 0 {
		cfg.Max = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if client != nil {
		return NewRedisLimiter(client, cfg.Prefix, cfg.Max, cfg.Window)
	}
	return NewLocalLimiter(cfg.Max, cfg.Window)
}

// RedisLimiter: fixed window (INCR + EXPIRE NX en una transacción).
type RedisLimiter struct {
	client *rdb.Client
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *RedisLimiter) key(key string, winStart time.Time) string {
	return fmt.Sprintf("%s%s:%d", l.prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.window)
	k := l.key(key, winStart)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	hits := incr.Val()
	res := Result{
		Allowed:   hits <= l.max,
		Limit:     l.max,
		Remaining: max64(l.max-hits, 0),
	}
	if !res.Allowed {
		// resto de la ventana, redondeado al segundo
		rest := winStart.Add(l.window).Sub(now)
		res.RetryAfter = time.Duration(math.Ceil(rest.Seconds())) * time.Second
	}
	return res, nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
