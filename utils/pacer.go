package utils

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out outbound calls. Each Wait sleeps for a delay drawn uniformly
// from [min, max], then takes a token from the optional shared limiter, which
// caps the request rate across every caller holding the same Pacer.
type Pacer struct {
	min     time.Duration
	max     time.Duration
	limiter *rate.Limiter
}

// NewPacer creates a Pacer. A ratePerSec of zero disables the shared ceiling.
func NewPacer(min, max time.Duration, ratePerSec float64) *Pacer {
	if max < min {
		max = min
	}
	p := &Pacer{min: min, max: max}
	if ratePerSec > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}
	return p
}

// Delay returns the next jittered delay.
func (p *Pacer) Delay() time.Duration {
	if p.max <= p.min {
		return p.min
	}
	return p.min + time.Duration(rand.Int63n(int64(p.max-p.min+1)))
}

// Wait blocks for one jittered delay and a limiter token, or until ctx is done.
// Callers invoke it between successive calls, never before the first.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := Sleep(ctx, p.Delay()); err != nil {
		return err
	}
	return p.Admit(ctx)
}

// Admit takes a limiter token without the jittered delay. Every outbound call,
// the first included, goes through Admit.
func (p *Pacer) Admit(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
