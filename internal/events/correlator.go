package events

import (
	"encoding/json"
	"sync"
)

// Event is an in-process notification. Broadcasts are addressed by Name,
// correlated deliveries by ID. Payload is raw JSON.
type Event struct {
	Name    string
	ID      int64
	Payload json.RawMessage
}

// Handler receives events. Handlers run on the emitting goroutine.
type Handler func(Event)

type listenerKind uint8

const (
	kindBroadcast listenerKind = iota
	kindCorrelated
)

type listener struct {
	kind listenerKind
	name string
	id   int64
	once bool
	fn   Handler
}

// Correlator dispatches broadcast and correlated events. It is safe for
// concurrent use; no lock is held while handlers run.
type Correlator struct {
	mu         sync.Mutex
	broadcast  map[string][]*listener
	correlated map[int64]*listener
}

// NewCorrelator returns an empty registry.
func NewCorrelator() *Correlator {
	return &Correlator{
		broadcast:  make(map[string][]*listener),
		correlated: make(map[int64]*listener),
	}
}

// On registers fn for every event named name. The returned func removes the
// registration and may be called more than once.
func (c *Correlator) On(name string, fn Handler) (remove func()) {
	l := &listener{kind: kindBroadcast, name: name, fn: fn}
	c.mu.Lock()
	c.broadcast[name] = append(c.broadcast[name], l)
	c.mu.Unlock()
	return func() { c.remove(l) }
}

// Once registers fn for the first response correlated to id.
func (c *Correlator) Once(id int64, fn Handler) (remove func()) {
	return c.correlate(id, true, fn)
}

// Track registers fn for every response correlated to id until removed.
func (c *Correlator) Track(id int64, fn Handler) (remove func()) {
	return c.correlate(id, false, fn)
}

func (c *Correlator) correlate(id int64, once bool, fn Handler) func() {
	l := &listener{kind: kindCorrelated, id: id, once: once, fn: fn}
	c.mu.Lock()
	c.correlated[id] = l
	c.mu.Unlock()
	return func() { c.remove(l) }
}

// Emit invokes every broadcast listener registered for ev.Name. Emitting a
// name nobody listens for is a no-op.
func (c *Correlator) Emit(ev Event) {
	c.mu.Lock()
	ls := append([]*listener(nil), c.broadcast[ev.Name]...)
	c.mu.Unlock()

	for _, l := range ls {
		l.fn(ev)
	}
}

// Resolve delivers ev to the listener correlated with ev.ID and reports
// whether one was registered. One-shot listeners are consumed first, so
// concurrent resolutions of the same id deliver at most once.
func (c *Correlator) Resolve(ev Event) bool {
	c.mu.Lock()
	l, ok := c.correlated[ev.ID]
	if ok && l.once {
		delete(c.correlated, ev.ID)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	l.fn(ev)
	return true
}

// Pending reports how many correlated listeners are registered.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.correlated)
}

func (c *Correlator) remove(l *listener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch l.kind {
	case kindBroadcast:
		ls := c.broadcast[l.name]
		for i, cur := range ls {
			if cur == l {
				ls = append(ls[:i:i], ls[i+1:]...)
				break
			}
		}
		if len(ls) == 0 {
			delete(c.broadcast, l.name)
		} else {
			c.broadcast[l.name] = ls
		}
	case kindCorrelated:
		if cur, ok := c.correlated[l.id]; ok && cur == l {
			delete(c.correlated, l.id)
		}
	}
}
