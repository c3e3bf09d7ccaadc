package consumer

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"stream-consumer/internal/streamer/wsfeed"
)

type request struct {
	conn int
	msg  wsfeed.Message
}

type serverConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *serverConn) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

func (s *serverConn) writeJSON(msg wsfeed.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

// streamServer acknowledges subscriptions like the real stream server, rejecting
// the topics listed in reject, and lets tests push frames and drop connections.
type streamServer struct {
	t        *testing.T
	server   *httptest.Server
	url      string
	reject   map[string]string
	requests chan request
	headers  chan http.Header

	mu    sync.Mutex
	conns []*serverConn
}

func newStreamServer(t *testing.T, reject map[string]string) *streamServer {
	t.Helper()

	s := &streamServer{
		t:        t,
		reject:   reject,
		requests: make(chan request, 100),
		headers:  make(chan http.Header, 10),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	s.url = "ws" + strings.TrimPrefix(s.server.URL, "http")
	t.Cleanup(s.server.Close)
	return s
}

func (s *streamServer) handle(w http.ResponseWriter, r *http.Request) {
	u := websocket.Upgrader{}
	c, err := u.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()

	select {
	case s.headers <- r.Header:
	default:
	}

	sc := &serverConn{conn: c}
	s.mu.Lock()
	s.conns = append(s.conns, sc)
	idx := len(s.conns)
	s.mu.Unlock()

	for {
		msg := wsfeed.Message{}
		if err := c.ReadJSON(&msg); err != nil {
			return
		}
		s.requests <- request{conn: idx, msg: msg}

		if msg.Action != wsfeed.ActionSubscribe {
			continue
		}

		resp := wsfeed.Message{Status: wsfeed.StatusSuccess, Hash: msg.Hash, Message: "Successfully subscribed"}
		if reason, ok := s.reject[msg.Hash]; ok {
			resp = wsfeed.Message{Status: wsfeed.StatusFailure, Hash: msg.Hash, Message: reason}
		}
		if err := sc.writeJSON(resp); err != nil {
			return
		}
	}
}

// push writes frame to the most recent connection
func (s *streamServer) push(frame string) {
	s.t.Helper()

	s.mu.Lock()
	sc := s.conns[len(s.conns)-1]
	s.mu.Unlock()

	if err := sc.write(frame); err != nil {
		s.t.Fatalf("push frame: %v", err)
	}
}

// drop closes every open connection without a close handshake
func (s *streamServer) drop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range s.conns {
		sc.conn.Close()
	}
}

func (s *streamServer) connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// expectRequests reads n requests received by the server
func (s *streamServer) expectRequests(n int) []request {
	s.t.Helper()

	var out []request
	for len(out) < n {
		select {
		case <-time.After(2 * time.Second):
			s.t.Fatalf("timed out waiting for requests, got %v", out)
		case r := <-s.requests:
			out = append(out, r)
		}
	}
	return out
}
