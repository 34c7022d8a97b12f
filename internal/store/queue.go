package store

import (
	"context"
	"sync"
	"time"

	"dappconnect/internal/domain"
)

type pending struct {
	msg      domain.SocketMessage
	expireAt time.Time
}

// MemoryQueue keeps pending bridge messages in process memory.
type MemoryQueue struct {
	mu     sync.Mutex
	topics map[string][]pending
	now    func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		topics: make(map[string][]pending),
		now:    time.Now,
	}
}

// Push queues msg for its topic. A non-positive ttl never expires. Expired
// messages of every topic are dropped on the way.
func (m *MemoryQueue) Push(_ context.Context, msg domain.SocketMessage, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.pruneLocked(now)

	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	m.topics[msg.Topic] = append(m.topics[msg.Topic], pending{msg: msg, expireAt: exp})
	return nil
}

// Drain removes and returns the unexpired messages for topic.
func (m *MemoryQueue) Drain(_ context.Context, topic string) ([]domain.SocketMessage, error) {
	m.mu.Lock()
	queued := m.topics[topic]
	delete(m.topics, topic)
	m.mu.Unlock()

	now := m.now()
	out := make([]domain.SocketMessage, 0, len(queued))
	for _, p := range queued {
		if p.expired(now) {
			continue
		}
		out = append(out, p.msg)
	}
	return out, nil
}

// Len reports how many messages are held, expired ones included.
func (m *MemoryQueue) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, q := range m.topics {
		n += len(q)
	}
	return n
}

func (m *MemoryQueue) pruneLocked(now time.Time) {
	for topic, q := range m.topics {
		kept := q[:0]
		for _, p := range q {
			if !p.expired(now) {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(m.topics, topic)
			continue
		}
		m.topics[topic] = kept
	}
}

func (p pending) expired(now time.Time) bool {
	return !p.expireAt.IsZero() && !now.Before(p.expireAt)
}

var _ domain.MessageQueue = (*MemoryQueue)(nil)
