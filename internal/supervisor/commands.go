package supervisor

import "sync"

type commandKind int

const (
	cmdSubscribe commandKind = iota
	cmdUnsubscribe
)

type command struct {
	kind  commandKind
	topic string
}

// commandQueue hands subscribe and unsubscribe requests from any goroutine to
// the goroutine owning the connection. Push never blocks.
type commandQueue struct {
	mu    sync.Mutex
	queue []command
	ready chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		ready: make(chan struct{}, 1),
	}
}

func (q *commandQueue) push(c command) {
	q.mu.Lock()
	q.queue = append(q.queue, c)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *commandQueue) drain() []command {
	q.mu.Lock()
	defer q.mu.Unlock()

	cmds := q.queue
	q.queue = nil
	return cmds
}
