package supervisor

import (
	"errors"

	"stream-consumer/internal/dispatch"
	"stream-consumer/internal/subscription"
)

var (
	ErrAlreadyStarted       = errors.New("supervisor already started")
	ErrMaxReconnectAttempts = errors.New("max reconnect attempts exceeded")
)

// State is the connection state of a Supervisor
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Stopped
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Table is the subscription state replayed on every new connection
type Table interface {
	Get(topic string) (subscription.Entry, bool)
	PrepareReplay() []subscription.Entry
}

var _ Table = (*subscription.Table)(nil)

// Dispatcher consumes inbound frames and the supervisor's own events
type Dispatcher interface {
	OnFrame(raw []byte)
	Emit(ev dispatch.Event)
}

var _ Dispatcher = (*dispatch.Dispatcher)(nil)
