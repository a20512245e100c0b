package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// attemptLimiter throttles sign-in attempts per key (the normalized email).
type attemptLimiter struct {
	every time.Duration
	burst int
	idle  time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newAttemptLimiter(every time.Duration, burst int) *attemptLimiter {
	return &attemptLimiter{
		every:   every,
		burst:   burst,
		idle:    every * time.Duration(burst) * 2,
		buckets: make(map[string]*bucket),
	}
}

func (l *attemptLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idle {
			delete(l.buckets, k)
		}
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// reset forgets a key after a successful sign-in.
func (l *attemptLimiter) reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}
