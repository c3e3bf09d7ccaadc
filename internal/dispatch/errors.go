package dispatch

import "fmt"

// ProtocolError describes an inbound frame that could not be decoded or classified
type ProtocolError struct {
	Frame []byte
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed frame %q: %v", truncate(e.Frame, 128), e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// RejectionError is raised when the server refuses a subscription
type RejectionError struct {
	Topic  string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("subscription to %s rejected: %s", e.Topic, e.Reason)
}

// HandlerError wraps an error returned, or a panic raised, by a handler
type HandlerError struct {
	Kind  Kind
	Err   error
	Panic interface{}
}

func (e *HandlerError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("%s handler panicked: %v", e.Kind, e.Panic)
	}
	return fmt.Sprintf("%s handler: %v", e.Kind, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
