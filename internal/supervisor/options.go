package supervisor

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	logger      *zap.Logger
	backoffBase time.Duration
	backoffCap  time.Duration
	maxAttempts int
}

type Option interface {
	apply(*options)
}

type loggerOption struct {
	Log *zap.Logger
}

func (l loggerOption) apply(opts *options) {
	opts.logger = l.Log
}

func WithLogger(log *zap.Logger) Option {
	if log == nil {
		log = zap.NewNop()
	}
	return loggerOption{Log: log}
}

type backoffOption struct {
	Base time.Duration
	Cap  time.Duration
}

func (b backoffOption) apply(opts *options) {
	opts.backoffBase = b.Base
	opts.backoffCap = b.Cap
}

// WithBackoff sets the first reconnect delay and the maximum delay.
// Non-positive values keep the defaults (100ms and 30s).
func WithBackoff(base, maxDelay time.Duration) Option {
	if base <= 0 {
		base = _defaultBackoffBase
	}
	if maxDelay <= 0 {
		maxDelay = _defaultBackoffCap
	}
	return backoffOption{Base: base, Cap: maxDelay}
}

type maxAttemptsOption struct {
	Attempts int
}

func (m maxAttemptsOption) apply(opts *options) {
	opts.maxAttempts = m.Attempts
}

// WithMaxReconnectAttempts stops the supervisor for good after n consecutive
// failed connection attempts. 0 retries forever.
func WithMaxReconnectAttempts(n int) Option {
	if n < 0 {
		n = 0
	}
	return maxAttemptsOption{Attempts: n}
}
