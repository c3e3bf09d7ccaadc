package dispatch

import "encoding/json"

// Kind classifies an Event
type Kind int

const (
	KindData Kind = iota
	KindDeletion
	KindWarning
	KindError
	KindStatusChange
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindDeletion:
		return "deletion"
	case KindWarning:
		return "warning"
	case KindError:
		return "error"
	case KindStatusChange:
		return "status_change"
	default:
		return "unknown"
	}
}

// Event is a decoded unit of pushed data. Which fields are set depends on Kind:
//   - KindData: Topic and Payload
//   - KindDeletion: Topic, ID and Payload
//   - KindWarning, KindError: Message, and Err when raised locally
//   - KindStatusChange: Message holds the new state, Err the cause if any
type Event struct {
	Kind    Kind
	Topic   string
	Payload json.RawMessage
	ID      string
	Message string
	Err     error
}

// HandlerFunc handles a single event. Returned errors and panics are reported
// as KindError events and never stop the stream.
type HandlerFunc func(Event) error
