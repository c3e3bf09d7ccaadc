package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"stream-consumer/internal/dispatch"
	"stream-consumer/internal/streamer"
	"stream-consumer/internal/streamer/wsfeed"
	"stream-consumer/internal/subscription"
)

// Supervisor owns the live connection. A single goroutine dials, replays the
// subscription table, writes every request and runs the dispatcher inline, so
// events are delivered in arrival order. When the connection drops it backs
// off and dials again until stopped or out of attempts.
type Supervisor struct {
	dialer     streamer.Dialer
	table      Table
	dispatcher Dispatcher
	logger     *zap.Logger

	backoff     *Backoff
	maxAttempts int
	commands    *commandQueue

	state atomic.Int32

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// New creates a supervisor. Nothing is dialed until Start is called.
func New(dialer streamer.Dialer, table Table, dispatcher Dispatcher, opts ...Option) *Supervisor {
	options := options{
		logger:      zap.NewNop(),
		backoffBase: _defaultBackoffBase,
		backoffCap:  _defaultBackoffCap,
	}

	for _, o := range opts {
		o.apply(&options)
	}

	return &Supervisor{
		dialer:      dialer,
		table:       table,
		dispatcher:  dispatcher,
		logger:      options.logger,
		backoff:     NewBackoff(options.backoffBase, options.backoffCap, nil),
		maxAttempts: options.maxAttempts,
		commands:    newCommandQueue(),
		done:        make(chan struct{}),
	}
}

// Start begins connecting in the background and returns immediately
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)

	return nil
}

// Stop halts reconnection and blocks until the current connection is closed.
// It must not be called from an event handler, which runs on the goroutine
// Stop waits for.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.started {
		s.started = true
		s.mu.Unlock()
		s.finish(nil)
		close(s.done)
		return
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-s.done
}

// Subscribe asks the connection owner to send a subscribe request for topic.
// The topic must already be in the table; requests made while disconnected are
// covered by the replay that follows the next connection.
func (s *Supervisor) Subscribe(topic string) {
	s.commands.push(command{kind: cmdSubscribe, topic: topic})
}

// Unsubscribe asks the connection owner to send an unsubscribe request for topic
func (s *Supervisor) Unsubscribe(topic string) {
	s.commands.push(command{kind: cmdUnsubscribe, topic: topic})
}

// State returns the current connection state
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Done is closed once the supervisor has stopped for good
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Err returns the reason the supervisor stopped on its own, if any
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)

	failures := 0
	for {
		s.transition(Connecting, nil)

		conn, err := s.dialer.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.finish(nil)
				return
			}

			failures++
			s.logger.Warn("connect failed", zap.Int("attempt", failures), zap.Error(err))
			if s.maxAttempts > 0 && failures >= s.maxAttempts {
				s.finish(fmt.Errorf("%w after %d attempts: %w", ErrMaxReconnectAttempts, failures, err))
				return
			}
			s.transition(Disconnected, err)
		} else {
			failures = 0
			s.backoff.Reset()
			s.transition(Connected, nil)

			err = s.serve(ctx, conn)
			if cerr := conn.Close(); cerr != nil {
				s.logger.Debug("close connection", zap.Error(cerr))
			}

			if ctx.Err() != nil {
				s.finish(nil)
				return
			}
			s.transition(Disconnected, err)
		}

		delay := s.backoff.Next()
		s.logger.Info("reconnect scheduled", zap.Duration("delay", delay), zap.Int("attempt", s.backoff.Attempt()))
		if !sleep(ctx, delay) {
			s.finish(nil)
			return
		}
	}
}

// serve replays the table on conn and then pumps frames and commands until the
// connection fails or ctx is cancelled.
func (s *Supervisor) serve(ctx context.Context, conn streamer.Streamer) error {
	feeds, feedsErr := conn.Feeds()

	// the table already holds everything queued while disconnected
	s.commands.drain()

	// generation of the table entry each subscribe on this connection was sent for
	sent := make(map[string]uint64)
	var topics []string
	for _, e := range s.table.PrepareReplay() {
		if err := conn.Send(wsfeed.NewSubscribe(e.Topic)); err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		sent[e.Topic] = e.Gen
		topics = append(topics, e.Topic)
	}
	if len(topics) > 0 {
		s.logger.Info("subscriptions replayed", zap.Strings("topics", topics))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.commands.ready:
			if err := s.apply(conn, sent, s.commands.drain()); err != nil {
				return err
			}

		case frame := <-feeds:
			s.dispatcher.OnFrame(frame)

		case err := <-feedsErr:
			return fmt.Errorf("feeds: %w", err)
		}
	}
}

// apply sends the requests needed to bring the connection in line with the
// table. A topic removed and added again has a new generation, so its old
// subscription is dropped and a fresh one is requested.
func (s *Supervisor) apply(conn streamer.Streamer, sent map[string]uint64, cmds []command) error {
	for _, c := range cmds {
		switch c.kind {
		case cmdSubscribe:
			e, ok := s.table.Get(c.topic)
			if !ok || e.State != subscription.Pending {
				continue
			}
			if gen, ok := sent[c.topic]; ok && gen == e.Gen {
				continue
			}
			if err := conn.Send(wsfeed.NewSubscribe(c.topic)); err != nil {
				return err
			}
			sent[c.topic] = e.Gen
			s.logger.Debug("subscribe sent", zap.String("topic", c.topic))

		case cmdUnsubscribe:
			gen, ok := sent[c.topic]
			if !ok {
				continue
			}
			// still the subscription that was sent
			if e, ok := s.table.Get(c.topic); ok && e.Gen == gen {
				continue
			}
			if err := conn.Send(wsfeed.NewUnsubscribe(c.topic)); err != nil {
				return err
			}
			delete(sent, c.topic)
			s.logger.Debug("unsubscribe sent", zap.String("topic", c.topic))
		}
	}
	return nil
}

func (s *Supervisor) transition(to State, cause error) {
	from := State(s.state.Swap(int32(to)))

	fields := []zap.Field{zap.Stringer("from", from), zap.Stringer("to", to)}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	s.logger.Info("connection state changed", fields...)

	s.dispatcher.Emit(dispatch.Event{Kind: dispatch.KindStatusChange, Message: to.String(), Err: cause})
}

func (s *Supervisor) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("supervisor stopped", zap.Error(err))
	}
	s.transition(Stopped, err)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
