package wsfeed

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when using a connection that was already closed
var ErrClosed = errors.New("connection closed")

// ConnectError is returned when the websocket server could not be reached
// or the handshake failed.
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("dial ws server %s: %v", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// SendError is returned when a message could not be written to the connection
type SendError struct {
	Msg Message
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send %s: %v", e.Msg.String(), e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
