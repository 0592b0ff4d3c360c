package console

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter throttles console commands per actor.
type Limiter interface {
	Allow(key string) bool
}

type allowAll struct{}

func (allowAll) Allow(string) bool { return true }

// ActorLimiter keeps one token bucket per actor key.
type ActorLimiter struct {
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	buckets map[string]*rate.Limiter
}

// NewActorLimiter allows r commands per second with the given burst,
// tracked separately per actor.
func NewActorLimiter(r rate.Limit, burst int) *ActorLimiter {
	return &ActorLimiter{rate: r, burst: burst, buckets: make(map[string]*rate.Limiter)}
}

func (l *ActorLimiter) Allow(key string) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(l.rate, l.burst)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()
	return bucket.Allow()
}
