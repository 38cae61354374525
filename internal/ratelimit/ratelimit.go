// Package ratelimit paces successive scrape calls so batch refreshes
// do not trip target-site bot defenses. Pacing is caller-side policy;
// the scraping core itself never sleeps.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type Limiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// IntervalLimiter enforces a minimum gap between actions, with jitter
// between min and max so request timing does not look mechanical.
type IntervalLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewIntervalLimiter(minDelay, maxDelay time.Duration) *IntervalLimiter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &IntervalLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (l *IntervalLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := time.Since(l.lastAction)
	delay := l.nextDelay()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	l.lastAction = time.Now()
	return nil
}

func (l *IntervalLimiter) SetDelay(min, max time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.minDelay = min
	l.maxDelay = max
	if l.maxDelay < l.minDelay {
		l.maxDelay = l.minDelay
	}
}

func (l *IntervalLimiter) nextDelay() time.Duration {
	if l.minDelay >= l.maxDelay {
		return l.minDelay
	}
	jitter := time.Duration(rand.Int63n(int64(l.maxDelay - l.minDelay)))
	return l.minDelay + jitter
}
