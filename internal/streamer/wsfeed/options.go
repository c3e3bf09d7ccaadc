package wsfeed

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	_defaultPingInterval = 30 * time.Second
	_defaultPongWait     = 60 * time.Second
	_defaultWriteTimeout = 10 * time.Second
)

type options struct {
	logger       *zap.Logger
	header       http.Header
	pingInterval time.Duration
	pongWait     time.Duration
	writeTimeout time.Duration
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
	for k, v := range h.Header {
		opts.header[k] = append(opts.header[k], v...)
	}
}

// WithHeader adds headers sent with the websocket handshake, typically credentials
func WithHeader(header http.Header) Option {
	return headerOption{Header: header}
}

type livenessOption struct {
	PingInterval time.Duration
	PongWait     time.Duration
}

func (l livenessOption) apply(opts *options) {
	opts.pingInterval = l.PingInterval
	opts.pongWait = l.PongWait
}

// WithLiveness sets how often pings are sent and how long the connection may stay
// silent before it is considered dead. pongWait must be greater than pingInterval.
func WithLiveness(pingInterval, pongWait time.Duration) Option {
	if pingInterval <= 0 {
		pingInterval = _defaultPingInterval
	}
	if pongWait <= pingInterval {
		pongWait = 2 * pingInterval
	}
	return livenessOption{PingInterval: pingInterval, PongWait: pongWait}
}

type writeTimeoutOption struct {
	Timeout time.Duration
}

func (w writeTimeoutOption) apply(opts *options) {
	opts.writeTimeout = w.Timeout
}

func WithWriteTimeout(timeout time.Duration) Option {
	if timeout <= 0 {
		timeout = _defaultWriteTimeout
	}
	return writeTimeoutOption{Timeout: timeout}
}
