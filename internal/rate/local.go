package rate

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	xrate "golang.org/x/time/rate"
)

// LocalLimiter es un token bucket por clave. Los buckets sin uso se
// descartan tras dos ventanas.
type LocalLimiter struct {
	max     int
	every   xrate.Limit
	buckets *gocache.Cache
	mu      sync.Mutex
	now     func() time.Time
}

// NewLocalLimiter permite ráfagas de max requests y recarga max por window.
func NewLocalLimiter(max int, window time.Duration) *LocalLimiter {
	return &LocalLimiter{
		max:     max,
		every:   xrate.Every(window / time.Duration(max)),
		buckets: gocache.New(2*window, window),
		now:     time.Now,
	}
}

func (l *LocalLimiter) bucket(key string) *xrate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.buckets.Get(key); ok {
		lim := v.(*xrate.Limiter)
		l.buckets.SetDefault(key, lim)
		return lim
	}
	lim := xrate.NewLimiter(l.every, l.max)
	l.buckets.SetDefault(key, lim)
	return lim
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()
	lim := l.bucket(key)

	r := lim.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
		return Result{
			Allowed:    false,
			Limit:      int64(l.max),
			RetryAfter: ceilSecond(delay),
		}, nil
	}
	remaining := int64(lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Limit: int64(l.max), Remaining: remaining}, nil
}

func ceilSecond(d time.Duration) time.Duration {
	s := d.Truncate(time.Second)
	if s < d {
		s += time.Second
	}
	return s
}
