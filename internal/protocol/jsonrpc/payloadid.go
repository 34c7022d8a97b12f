package jsonrpc

import (
	"math/rand/v2"
	"sync"
	"time"
)

// IDGenerator issues payload ids of the form unix-millis*1000 plus three
// random digits. Ids from one generator strictly increase, so two in-flight
// requests never share one.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDGenerator returns a generator reading the wall clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// Next returns a fresh id.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()*1000 + rand.Int64N(1000)
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
