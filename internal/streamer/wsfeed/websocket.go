package wsfeed

import (
	"context"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Conn is a single websocket connection to the stream server. Messages are sent
// with Send and received through Feeds. A Conn cannot be reopened once closed.
type Conn struct {
	conn   *ws.Conn
	url    string
	logger *zap.Logger

	pingInterval time.Duration
	pongWait     time.Duration
	writeTimeout time.Duration

	writeMu sync.Mutex

	feedsOnce sync.Once
	feeds     chan []byte
	feedsErr  chan error

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// Dial establishes the connection to the websocket server
func Dial(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	options := options{
		logger:       zap.NewNop(),
		header:       http.Header{},
		pingInterval: _defaultPingInterval,
		pongWait:     _defaultPongWait,
		writeTimeout: _defaultWriteTimeout,
	}

	for _, o := range opts {
		o.apply(&options)
	}

	conn, _, err := ws.DefaultDialer.DialContext(ctx, url, options.header)
	if err != nil {
		return nil, &ConnectError{URL: url, Err: err}
	}

	c := &Conn{
		conn:         conn,
		url:          url,
		logger:       options.logger.With(zap.String("url", url)),
		pingInterval: options.pingInterval,
		pongWait:     options.pongWait,
		writeTimeout: options.writeTimeout,
		feeds:        make(chan []byte),
		feedsErr:     make(chan error, 1),
		done:         make(chan struct{}),
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	go c.ping()

	c.logger.Debug("connected")
	return c, nil
}

// Send writes msg to the server. Concurrent calls are serialized.
func (c *Conn) Send(msg Message) error {
	select {
	case <-c.done:
		return &SendError{Msg: msg, Err: ErrClosed}
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		return &SendError{Msg: msg, Err: err}
	}

	return nil
}

// Feeds returns the raw frames read from the server and a channel receiving the
// error that ended the connection. The read loop starts on the first call;
// later calls return the same channels. feeds is unbuffered so that feedsErr is
// only written once every earlier frame has been received.
func (c *Conn) Feeds() (feeds <-chan []byte, feedsErr <-chan error) {
	c.feedsOnce.Do(func() {
		go c.read()
	})
	return c.feeds, c.feedsErr
}

// Done is closed when the connection is closed
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection to the server. It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		var err error
		closeMsg := ws.FormatCloseMessage(ws.CloseNormalClosure, "")
		if werr := c.conn.WriteControl(ws.CloseMessage, closeMsg, time.Now().Add(time.Second)); werr != nil && werr != ws.ErrCloseSent {
			err = multierr.Append(err, werr)
		}
		err = multierr.Append(err, c.conn.Close())
		if err != nil {
			c.logger.Debug("close connection", zap.Error(err))
		}
		c.closeErr = err
		c.logger.Debug("connection closed")
	})
	return c.closeErr
}

func (c *Conn) read() {
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				c.feedsErr <- ErrClosed
			default:
				c.feedsErr <- err
			}
			return
		}

		select {
		case c.feeds <- frame:
		case <-c.done:
			c.feedsErr <- ErrClosed
			return
		}
	}
}

func (c *Conn) ping() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				select {
				case <-c.done:
				default:
					c.logger.Warn("ping failed", zap.Error(err))
				}
				return
			}
		}
	}
}
