package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dappconnect/internal/domain"
)

// DefaultMessageTTL bounds how long a publication waits for a subscriber.
const DefaultMessageTTL = 24 * time.Hour

type peer interface {
	deliver(msg domain.SocketMessage) error
}

type wsPeer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (p *wsPeer) deliver(msg domain.SocketMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteJSON(msg)
}

// Hub routes socket messages between subscribers.
type Hub struct {
	queue  domain.MessageQueue
	ttl    time.Duration
	logger *slog.Logger

	upgrader websocket.Upgrader

	// route serialises subscribe+drain against the publish check+push, so a
	// publication is either delivered live or drained by the subscriber.
	route sync.Mutex

	mu   sync.RWMutex
	subs map[string]map[peer]struct{}
}

// NewHub returns a hub queueing undeliverable publications in queue for ttl.
func NewHub(queue domain.MessageQueue, ttl time.Duration, logger *slog.Logger) *Hub {
	if ttl <= 0 {
		ttl = DefaultMessageTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		queue:  queue,
		ttl:    ttl,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		subs: make(map[string]map[peer]struct{}),
	}
}

// ServeHTTP upgrades the request and serves socket messages until the
// connection drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	p := &wsPeer{conn: conn}
	h.logger.Debug("client connected", "remote", r.RemoteAddr)

	defer func() {
		h.unsubscribeAll(p)
		_ = conn.Close()
		h.logger.Debug("client disconnected", "remote", r.RemoteAddr)
	}()

	ctx := context.WithoutCancel(r.Context())
	for {
		var msg domain.SocketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("read failed", "remote", r.RemoteAddr, "error", err)
			}
			return
		}
		if err := h.handle(ctx, p, msg); err != nil {
			h.logger.Warn("handle message failed", "remote", r.RemoteAddr, "type", msg.Type, "topic", msg.Topic, "error", err)
		}
	}
}

func (h *Hub) handle(ctx context.Context, p peer, msg domain.SocketMessage) error {
	if msg.Topic == "" {
		return errors.New("message has no topic")
	}

	switch msg.Type {
	case domain.MessageSub:
		h.route.Lock()
		h.subscribe(msg.Topic, p)
		queued, err := h.queue.Drain(ctx, msg.Topic)
		h.route.Unlock()
		if err != nil {
			return fmt.Errorf("drain %s: %w", msg.Topic, err)
		}
		for _, q := range queued {
			if err := p.deliver(q); err != nil {
				return fmt.Errorf("deliver queued %s: %w", msg.Topic, err)
			}
		}
		return nil

	case domain.MessagePub:
		h.route.Lock()
		subs := h.subscribers(msg.Topic)
		if len(subs) == 0 {
			defer h.route.Unlock()
			h.logger.Debug("queueing publication", "topic", msg.Topic)
			return h.queue.Push(ctx, msg, h.ttl)
		}
		h.route.Unlock()
		for _, s := range subs {
			if err := s.deliver(msg); err != nil {
				h.logger.Warn("deliver failed", "topic", msg.Topic, "error", err)
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func (h *Hub) subscribe(topic string, p peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[topic]
	if !ok {
		set = make(map[peer]struct{})
		h.subs[topic] = set
	}
	set[p] = struct{}{}
}

func (h *Hub) subscribers(topic string) []peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]peer, 0, len(h.subs[topic]))
	for p := range h.subs[topic] {
		out = append(out, p)
	}
	return out
}

func (h *Hub) unsubscribeAll(p peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, set := range h.subs {
		delete(set, p)
		if len(set) == 0 {
			delete(h.subs, topic)
		}
	}
}

// Subscribers reports how many peers are subscribed to topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
