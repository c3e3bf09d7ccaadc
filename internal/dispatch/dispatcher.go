package dispatch

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"stream-consumer/internal/subscription"
)

// Tracker receives the server's verdict on subscription requests
type Tracker interface {
	MarkActive(topic string) bool
	MarkFailed(topic string, reason string) bool
}

var _ Tracker = (*subscription.Table)(nil)

// Dispatcher classifies raw frames into events and hands them to the handlers
// registered for their kind. Handlers run synchronously on the goroutine
// calling OnFrame or Emit, in registration order.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Kind][]HandlerFunc
	tracker  Tracker
	logger   *zap.Logger
}

// New creates a dispatcher reporting subscription acks and rejections to tracker
func New(tracker Tracker, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		handlers: make(map[Kind][]HandlerFunc),
		tracker:  tracker,
		logger:   logger,
	}
}

// Handle registers fn for events of the given kind. It may be called at any
// time, including from a handler.
func (d *Dispatcher) Handle(kind Kind, fn HandlerFunc) {
	if fn == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[kind] = append(d.handlers[kind], fn)
}

// OnFrame decodes raw and delivers the resulting event. Frames that cannot be
// decoded are delivered as warnings.
func (d *Dispatcher) OnFrame(raw []byte) {
	f, err := decode(raw)
	if err != nil {
		d.logger.Warn("dispatch: malformed frame", zap.Error(err))
		d.Emit(Event{Kind: KindWarning, Message: err.Error(), Err: err})
		return
	}

	switch f.kind {
	case frameHeartbeat:
		return

	case frameAck:
		if d.tracker.MarkActive(f.event.Topic) {
			d.logger.Info("subscription updated", zap.String("topic", f.event.Topic), zap.Stringer("state", subscription.Active))
		}
		return

	case frameRejection:
		reason := f.event.Message
		if d.tracker.MarkFailed(f.event.Topic, reason) {
			d.logger.Warn("subscription rejected", zap.String("topic", f.event.Topic), zap.String("reason", reason))
		}
		rejectErr := &RejectionError{Topic: f.event.Topic, Reason: reason}
		d.Emit(Event{Kind: KindError, Topic: f.event.Topic, Message: rejectErr.Error(), Err: rejectErr})
		return
	}

	d.Emit(f.event)
}

// Emit delivers ev to every handler registered for its kind. A failing handler
// does not prevent delivery to the others.
func (d *Dispatcher) Emit(ev Event) {
	for _, fn := range d.handlersFor(ev.Kind) {
		herr := d.call(fn, ev)
		if herr == nil {
			continue
		}

		d.logger.Error("dispatch: handler failed", zap.Stringer("kind", ev.Kind), zap.String("topic", ev.Topic), zap.Error(herr))

		// an error handler failing is only logged so failures cannot loop
		if ev.Kind == KindError {
			continue
		}
		errEv := Event{Kind: KindError, Topic: ev.Topic, Message: herr.Error(), Err: herr}
		for _, efn := range d.handlersFor(KindError) {
			if eerr := d.call(efn, errEv); eerr != nil {
				d.logger.Error("dispatch: error handler failed", zap.Error(eerr))
			}
		}
	}
}

func (d *Dispatcher) handlersFor(kind Kind) []HandlerFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.handlers[kind]
}

func (d *Dispatcher) call(fn HandlerFunc, ev Event) (herr *HandlerError) {
	defer func() {
		if r := recover(); r != nil {
			herr = &HandlerError{Kind: ev.Kind, Panic: r, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := fn(ev); err != nil {
		return &HandlerError{Kind: ev.Kind, Err: err}
	}
	return nil
}
