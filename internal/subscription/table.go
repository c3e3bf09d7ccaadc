package subscription

import (
	"sort"
	"sync"
)

// State is the registration state of a topic
type State int

const (
	Pending State = iota
	Active
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is a topic and its registration state. Gen changes every time the
// topic is added again after a removal and orders entries by insertion.
type Entry struct {
	Topic  string
	State  State
	Reason string
	Gen    uint64
}

// Table holds every topic that should be subscribed on the live connection.
// Mutations are serialized; reads may run concurrently.
type Table struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	seq     uint64
}

// NewTable creates an empty subscription table
func NewTable() *Table {
	return &Table{
		entries: make(map[string]*Entry),
	}
}

// Add registers topic as Pending. Adding a topic that is already present
// leaves it untouched and reports false.
func (t *Table) Add(topic string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[topic]; ok {
		return e.State, false
	}

	t.seq++
	t.entries[topic] = &Entry{Topic: topic, State: Pending, Gen: t.seq}
	return Pending, true
}

// Remove deletes topic and reports whether it was present
func (t *Table) Remove(topic string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[topic]; !ok {
		return false
	}
	delete(t.entries, topic)
	return true
}

// MarkActive moves a Pending topic to Active
func (t *Table) MarkActive(topic string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[topic]
	if !ok || e.State != Pending {
		return false
	}
	e.State = Active
	return true
}

// MarkFailed moves a Pending or Active topic to Failed
func (t *Table) MarkFailed(topic string, reason string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[topic]
	if !ok || e.State == Failed {
		return false
	}
	e.State = Failed
	e.Reason = reason
	return true
}

// Get returns the entry for topic
func (t *Table) Get(topic string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[topic]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of topics in the table
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.entries)
}

// Snapshot returns a copy of every entry in insertion order
func (t *Table) Snapshot() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.sorted()
}

// PrepareReplay resets Active topics to Pending and returns every entry that
// is not Failed, in insertion order. It is called once per new connection.
func (t *Table) PrepareReplay() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var replay []Entry
	for _, e := range t.sorted() {
		if e.State == Failed {
			continue
		}
		t.entries[e.Topic].State = Pending
		e.State = Pending
		replay = append(replay, e)
	}
	return replay
}

func (t *Table) sorted() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Gen < out[j].Gen
	})
	return out
}
