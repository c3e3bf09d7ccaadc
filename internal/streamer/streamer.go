package streamer

import (
	"context"

	"stream-consumer/internal/streamer/wsfeed"
)

// Streamer is a single live push connection to the stream server
type Streamer interface {
	Send(msg wsfeed.Message) error
	Feeds() (feeds <-chan []byte, feedsErr <-chan error)
	Close() error
}

var _ Streamer = (*wsfeed.Conn)(nil)

// Dialer opens new Streamers. It is called again after every connection loss.
type Dialer interface {
	Dial(ctx context.Context) (Streamer, error)
}

// DialerFunc adapts a function to the Dialer interface
type DialerFunc func(ctx context.Context) (Streamer, error)

func (f DialerFunc) Dial(ctx context.Context) (Streamer, error) {
	return f(ctx)
}

// WSDialer dials websocket connections with a fixed set of options
func WSDialer(url string, opts ...wsfeed.Option) Dialer {
	return DialerFunc(func(ctx context.Context) (Streamer, error) {
		conn, err := wsfeed.Dial(ctx, url, opts...)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}
