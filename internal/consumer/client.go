package consumer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"stream-consumer/internal/dispatch"
	"stream-consumer/internal/streamer"
	"stream-consumer/internal/streamer/wsfeed"
	"stream-consumer/internal/subscription"
	"stream-consumer/internal/supervisor"
)

// Client consumes a push stream over a single websocket connection. Topics
// subscribed through it survive reconnections: the subscription table is
// replayed every time the connection is re-established.
// Available options are WithLogger(logger), WithHeader(header), WithBackoff(base = 100ms, max = 30s),
// WithMaxReconnectAttempts(n = 0), WithLiveness(ping = 30s, pong = 60s), WithWriteTimeout(timeout = 10s)
// and WithDialer(dialer)
type Client struct {
	id         string
	ctx        context.Context
	logger     *zap.Logger
	table      *subscription.Table
	dispatcher *dispatch.Dispatcher
	supervisor *supervisor.Supervisor
	started    atomic.Bool
	stopped    atomic.Bool
}

// New creates a client for the stream server at url. Nothing is dialed until
// Start is called; ctx bounds the lifetime of the client.
func New(ctx context.Context, url string, opts ...Option) *Client {
	options := options{
		logger: zap.NewNop(),
	}

	for _, o := range opts {
		o.apply(&options)
	}

	id := uuid.New().String()
	logger := options.logger.With(zap.String("client_id", id))

	dialer := options.dialer
	if dialer == nil {
		wsOpts := []wsfeed.Option{wsfeed.WithLogger(logger), wsfeed.WithHeader(options.header)}
		if options.pingInterval > 0 || options.pongWait > 0 {
			wsOpts = append(wsOpts, wsfeed.WithLiveness(options.pingInterval, options.pongWait))
		}
		if options.writeTimeout > 0 {
			wsOpts = append(wsOpts, wsfeed.WithWriteTimeout(options.writeTimeout))
		}
		dialer = streamer.WSDialer(url, wsOpts...)
	}

	table := subscription.NewTable()
	dispatcher := dispatch.New(table, logger)

	return &Client{
		id:         id,
		ctx:        ctx,
		logger:     logger,
		table:      table,
		dispatcher: dispatcher,
		supervisor: supervisor.New(dialer, table, dispatcher,
			supervisor.WithLogger(logger),
			supervisor.WithBackoff(options.backoffBase, options.backoffCap),
			supervisor.WithMaxReconnectAttempts(options.maxAttempts),
		),
	}
}

// ID identifies the client in logs
func (c *Client) ID() string {
	return c.id
}

// Start begins connecting in the background and returns immediately.
// Topics subscribed before the connection is up are sent once it is.
func (c *Client) Start() error {
	if c.stopped.Load() {
		return ErrStopped
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if err := c.supervisor.Start(c.ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	c.logger.Info("client started")
	return nil
}

// Stop closes the connection and stops reconnecting. It blocks until the
// connection is closed and must not be called from a handler.
func (c *Client) Stop() error {
	if !c.stopped.CompareAndSwap(false, true) {
		return nil
	}

	c.supervisor.Stop()
	c.logger.Info("client stopped")
	return nil
}

// Subscribe adds topics to the subscription table. They are sent to the server
// as soon as a connection is available. Subscribing to a topic that is already
// in the table, whatever its state, does nothing.
func (c *Client) Subscribe(topics ...string) error {
	if err := c.usable(); err != nil {
		return err
	}

	for _, topic := range topics {
		if topic == "" {
			return fmt.Errorf("subscribe: %w", ErrEmptyTopic)
		}
	}

	for _, topic := range topics {
		if _, added := c.table.Add(topic); added {
			c.logger.Debug("subscription added", zap.String("topic", topic))
			c.supervisor.Subscribe(topic)
		}
	}

	return nil
}

// Unsubscribe removes topics from the subscription table and from the server
func (c *Client) Unsubscribe(topics ...string) error {
	if err := c.usable(); err != nil {
		return err
	}

	for _, topic := range topics {
		if c.table.Remove(topic) {
			c.logger.Debug("subscription removed", zap.String("topic", topic))
			c.supervisor.Unsubscribe(topic)
		}
	}

	return nil
}

// Handle registers fn for events of the given kind. Handlers run one at a time
// in arrival order; an error or panic in one is reported as a KindError event.
func (c *Client) Handle(kind Kind, fn HandlerFunc) {
	c.dispatcher.Handle(kind, fn)
}

// State returns the connection state
func (c *Client) State() State {
	return c.supervisor.State()
}

// Subscriptions returns every topic in the table with its state
func (c *Client) Subscriptions() []Entry {
	return c.table.Snapshot()
}

// Done is closed once the client has stopped, either through Stop, its context
// or by running out of reconnect attempts.
func (c *Client) Done() <-chan struct{} {
	return c.supervisor.Done()
}

// Err returns why the client stopped on its own, if it did
func (c *Client) Err() error {
	return c.supervisor.Err()
}

func (c *Client) usable() error {
	if c.stopped.Load() {
		return ErrStopped
	}
	if !c.started.Load() {
		return ErrNotStarted
	}

	select {
	case <-c.supervisor.Done():
		return ErrStopped
	default:
	}

	return nil
}
