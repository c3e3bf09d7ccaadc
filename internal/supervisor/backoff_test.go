package supervisor

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_Next(t *testing.T) {
	tests := map[string]struct {
		base     time.Duration
		maxDelay time.Duration
		rnd      func() float64
		want     []time.Duration
	}{
		"it should double up to the cap": {
			base:     100 * time.Millisecond,
			maxDelay: time.Second,
			rnd:      func() float64 { return 0 },
			want: []time.Duration{
				100 * time.Millisecond,
				200 * time.Millisecond,
				400 * time.Millisecond,
				800 * time.Millisecond,
				time.Second,
				time.Second,
			},
		},
		"it should add jitter without passing the cap": {
			base:     100 * time.Millisecond,
			maxDelay: 500 * time.Millisecond,
			rnd:      func() float64 { return 0.5 },
			want: []time.Duration{
				112500 * time.Microsecond,
				225 * time.Millisecond,
				450 * time.Millisecond,
				500 * time.Millisecond,
			},
		},
		"it should use defaults": {
			rnd:  func() float64 { return 0 },
			want: []time.Duration{_defaultBackoffBase},
		},
		"it should not go below base": {
			base:     time.Second,
			maxDelay: time.Millisecond,
			rnd:      func() float64 { return 0.9 },
			want:     []time.Duration{time.Second, time.Second},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			b := NewBackoff(tt.base, tt.maxDelay, tt.rnd)
			var got []time.Duration
			for range tt.want {
				got = append(got, b.Next())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBackoff_should_be_monotonic_and_reset(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	base, maxDelay := 10*time.Millisecond, 2*time.Second
	b := NewBackoff(base, maxDelay, rnd.Float64)

	for round := 0; round < 3; round++ {
		prev := time.Duration(0)
		for i := 0; i < 20; i++ {
			d := b.Next()
			assert.GreaterOrEqual(t, d, prev, "round %d delay %d", round, i)
			assert.LessOrEqual(t, d, maxDelay)
			prev = d
		}
		assert.Equal(t, maxDelay, prev)
		assert.Equal(t, 20, b.Attempt())

		b.Reset()
		assert.Equal(t, 0, b.Attempt())
		first := b.Next()
		assert.GreaterOrEqual(t, first, base)
		assert.LessOrEqual(t, first, base+base/4)
		b.Reset()
	}
}
