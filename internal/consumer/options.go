package consumer

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"stream-consumer/internal/streamer"
)

type options struct {
	logger       *zap.Logger
	header       http.Header
	backoffBase  time.Duration
	backoffCap   time.Duration
	maxAttempts  int
	pingInterval time.Duration
	pongWait     time.Duration
	writeTimeout time.Duration
	dialer       streamer.Dialer
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

type headerOption struct {
	Header http.Header
}

func (h headerOption) apply(opts *options) {
	opts.header = h.Header
}

// WithHeader sets the headers sent when connecting, typically credentials
func WithHeader(header http.Header) Option {
	return headerOption{Header: header}
}

type backoffOption struct {
	Base time.Duration
	Cap  time.Duration
}

func (b backoffOption) apply(opts *options) {
	opts.backoffBase = b.Base
	opts.backoffCap = b.Cap
}

// WithBackoff sets the initial and maximum reconnect delays
func WithBackoff(base, maxDelay time.Duration) Option {
	return backoffOption{Base: base, Cap: maxDelay}
}

type maxAttemptsOption struct {
	Attempts int
}

func (m maxAttemptsOption) apply(opts *options) {
	opts.maxAttempts = m.Attempts
}

// WithMaxReconnectAttempts gives up after n consecutive failed connection
// attempts. 0 retries forever.
func WithMaxReconnectAttempts(n int) Option {
	return maxAttemptsOption{Attempts: n}
}

type livenessOption struct {
	PingInterval time.Duration
	PongWait     time.Duration
}

func (l livenessOption) apply(opts *options) {
	opts.pingInterval = l.PingInterval
	opts.pongWait = l.PongWait
}

// WithLiveness sets the ping interval and how long the connection may stay silent
func WithLiveness(pingInterval, pongWait time.Duration) Option {
	return livenessOption{PingInterval: pingInterval, PongWait: pongWait}
}

type writeTimeoutOption struct {
	Timeout time.Duration
}

func (w writeTimeoutOption) apply(opts *options) {
	opts.writeTimeout = w.Timeout
}

// WithWriteTimeout bounds every write to the connection
func WithWriteTimeout(timeout time.Duration) Option {
	return writeTimeoutOption{Timeout: timeout}
}

type dialerOption struct {
	Dialer streamer.Dialer
}

func (d dialerOption) apply(opts *options) {
	opts.dialer = d.Dialer
}

// WithDialer replaces the websocket dialer, e.g. to connect through another transport
func WithDialer(dialer streamer.Dialer) Option {
	return dialerOption{Dialer: dialer}
}
