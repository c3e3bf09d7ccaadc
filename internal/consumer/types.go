package consumer

import (
	"errors"

	"stream-consumer/internal/dispatch"
	"stream-consumer/internal/subscription"
	"stream-consumer/internal/supervisor"
)

var (
	ErrNotStarted     = errors.New("client not started")
	ErrStopped        = errors.New("client stopped")
	ErrAlreadyStarted = errors.New("client already started")
	ErrEmptyTopic     = errors.New("empty topic")
)

// Kind and Event are re-exported so callers only need this package
type (
	Kind        = dispatch.Kind
	Event       = dispatch.Event
	HandlerFunc = dispatch.HandlerFunc
	Entry       = subscription.Entry
	State       = supervisor.State
)

const (
	KindData         = dispatch.KindData
	KindDeletion     = dispatch.KindDeletion
	KindWarning      = dispatch.KindWarning
	KindError        = dispatch.KindError
	KindStatusChange = dispatch.KindStatusChange
)

type Consumer interface {
	Start() error
	Stop() error
	Subscribe(topics ...string) error
	Unsubscribe(topics ...string) error
	Handle(kind Kind, fn HandlerFunc)
}

var _ Consumer = (*Client)(nil)
