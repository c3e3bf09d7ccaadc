package supervisor

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"stream-consumer/internal/streamer"
	"stream-consumer/internal/streamer/wsfeed"
)

type DialerMock struct {
	mock.Mock
}

func (d *DialerMock) Dial(ctx context.Context) (streamer.Streamer, error) {
	ret := d.Called(ctx)

	var r0 streamer.Streamer
	if rf, ok := ret.Get(0).(streamer.Streamer); ok {
		r0 = rf
	}

	var r1 error
	if rf, ok := ret.Get(1).(error); ok {
		r1 = rf
	}

	return r0, r1
}

// fakeConn is an in-memory Streamer. Tests push frames and errors into it and
// read back what the supervisor sent.
type fakeConn struct {
	sent     chan wsfeed.Message
	feeds    chan []byte
	feedsErr chan error
	sendErr  error

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		sent:     make(chan wsfeed.Message, 100),
		feeds:    make(chan []byte),
		feedsErr: make(chan error, 1),
		closed:   make(chan struct{}),
	}
}

func (f *fakeConn) Send(msg wsfeed.Message) error {
	select {
	case <-f.closed:
		return &wsfeed.SendError{Msg: msg, Err: wsfeed.ErrClosed}
	default:
	}
	if f.sendErr != nil {
		return &wsfeed.SendError{Msg: msg, Err: f.sendErr}
	}
	f.sent <- msg
	return nil
}

func (f *fakeConn) Feeds() (<-chan []byte, <-chan error) {
	return f.feeds, f.feedsErr
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
	})
	return nil
}

func (f *fakeConn) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}
