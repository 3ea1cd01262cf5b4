package scraper

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pacer produces human-like randomized pauses. The random source is
// injected so runs can be reproduced.
type Pacer struct {
	mu    sync.Mutex
	rnd   *rand.Rand
	sleep SleepFunc
}

// NewPacer returns a Pacer drawing from rnd. A nil sleep uses Sleep.
func NewPacer(rnd *rand.Rand, sleep SleepFunc) *Pacer {
	if sleep == nil {
		sleep = Sleep
	}
	return &Pacer{rnd: rnd, sleep: sleep}
}

// Between returns a uniform duration in [min, max].
func (p *Pacer) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return min + time.Duration(p.rnd.Int64N(int64(max-min)+1))
}

// IntBetween returns a uniform int in [min, max].
func (p *Pacer) IntBetween(min, max int) int {
	if max <= min {
		return min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return min + p.rnd.IntN(max-min+1)
}

// Pause sleeps a random duration in [min, max]. It returns ctx.Err() when
// cancelled.
func (p *Pacer) Pause(ctx context.Context, min, max time.Duration) error {
	return p.sleep(ctx, p.Between(min, max))
}
