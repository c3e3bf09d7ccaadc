package supervisor

import (
	"math/rand"
	"time"

	"github.com/jpillora/backoff"
)

const (
	_defaultBackoffBase = 100 * time.Millisecond
	_defaultBackoffCap  = 30 * time.Second
	_backoffFactor      = 2
	_jitterFraction     = 0.25
)

// Backoff produces reconnect delays that grow exponentially from base up to maxDelay.
// Each delay gets up to 25% jitter but never exceeds maxDelay, so consecutive
// delays are non-decreasing until Reset is called.
type Backoff struct {
	b        *backoff.Backoff
	maxDelay time.Duration
	rnd      func() float64
}

// NewBackoff creates a Backoff. rnd returns values in [0, 1); nil uses math/rand.
func NewBackoff(base, maxDelay time.Duration, rnd func() float64) *Backoff {
	if base <= 0 {
		base = _defaultBackoffBase
	}
	if maxDelay < base {
		maxDelay = base
	}
	if rnd == nil {
		rnd = rand.Float64
	}

	return &Backoff{
		b: &backoff.Backoff{
			Min:    base,
			Max:    maxDelay,
			Factor: _backoffFactor,
		},
		maxDelay: maxDelay,
		rnd:      rnd,
	}
}

// Next returns the delay before the next attempt
func (b *Backoff) Next() time.Duration {
	d := b.b.Duration()
	d += time.Duration(float64(d) * _jitterFraction * b.rnd())
	if d > b.maxDelay {
		d = b.maxDelay
	}
	return d
}

// Attempt returns the number of delays handed out since the last Reset
func (b *Backoff) Attempt() int {
	return int(b.b.Attempt())
}

// Reset restarts the schedule from base
func (b *Backoff) Reset() {
	b.b.Reset()
}
