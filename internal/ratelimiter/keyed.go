package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// APIRequestsPerMinute bounds chat, summarize and fetch calls per user.
const (
	APIRequestsPerMinute = 20
	apiBurst             = 5

	minSweepSize = 1024
)

// Keyed holds one token bucket per key, created on first use. Buckets that
// have refilled are dropped once the map reaches sweepAt entries.
type Keyed struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	limit    rate.Limit
	burst    int
	sweepAt  int
	minSweep int
}

func NewKeyed(every time.Duration, burst int) *Keyed {
	return &Keyed{
		limiters: make(map[int64]*rate.Limiter),
		limit:    rate.Every(every),
		burst:    max(burst, 1),
		sweepAt:  minSweepSize,
		minSweep: minSweepSize,
	}
}

// NewAPI returns the per-user limiter for inference-backed API calls.
func NewAPI() *Keyed {
	return NewKeyed(time.Minute/APIRequestsPerMinute, apiBurst)
}

func (k *Keyed) limiter(key int64) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.limiters[key]
	if !ok {
		if len(k.limiters) >= k.sweepAt {
			k.sweep(time.Now())
		}

		l = rate.NewLimiter(k.limit, k.burst)
		k.limiters[key] = l
	}

	return l
}

// sweep drops full buckets. A full bucket behaves like a new one.
func (k *Keyed) sweep(now time.Time) {
	full := float64(k.burst)
	for key, l := range k.limiters {
		if l.TokensAt(now) >= full {
			delete(k.limiters, key)
		}
	}

	k.sweepAt = max(2*len(k.limiters), k.minSweep)
}

// Allow reports whether key may act now and consumes a token if so.
func (k *Keyed) Allow(key int64) bool {
	return k.limiter(key).Allow()
}

// Wait blocks until key may act or ctx is done.
func (k *Keyed) Wait(ctx context.Context, key int64) error {
	return k.limiter(key).Wait(ctx)
}

// Delay returns how long key would wait right now without consuming a token.
func (k *Keyed) Delay(key int64) time.Duration {
	l := k.limiter(key)
	now := time.Now()

	r := l.ReserveN(now, 1)
	defer r.CancelAt(now)

	return r.DelayFrom(now)
}
