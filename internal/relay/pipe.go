package relay

import (
	"context"
	"fmt"
	"sync"

	"dappconnect/internal/domain"
)

const pipeBuffer = 100

// Pipe is a domain.Transport wired straight into a Hub. Deliveries run on the
// pipe's own goroutine, as they would for a websocket client.
type Pipe struct {
	hub   *Hub
	inbox chan domain.SocketMessage
	done  chan struct{}

	mu      sync.Mutex
	handler func(domain.SocketMessage)
	opened  bool
	closed  bool
}

// NewPipe returns an unopened pipe into hub.
func NewPipe(hub *Hub) *Pipe {
	return &Pipe{
		hub:   hub,
		inbox: make(chan domain.SocketMessage, pipeBuffer),
		done:  make(chan struct{}),
	}
}

func (p *Pipe) OnMessage(fn func(domain.SocketMessage)) {
	p.mu.Lock()
	p.handler = fn
	p.mu.Unlock()
}

// Open starts delivery. The url is ignored.
func (p *Pipe) Open(_ context.Context, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("%w: pipe closed", domain.ErrTransport)
	}
	if p.opened {
		return fmt.Errorf("%w: already open", domain.ErrTransport)
	}
	p.opened = true
	go p.run()
	return nil
}

func (p *Pipe) Subscribe(ctx context.Context, topic string) error {
	return p.Send(ctx, domain.SocketMessage{Topic: topic, Type: domain.MessageSub, Silent: true})
}

func (p *Pipe) Send(ctx context.Context, msg domain.SocketMessage) error {
	p.mu.Lock()
	ok := p.opened && !p.closed
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: pipe not open", domain.ErrTransport)
	}
	if err := p.hub.handle(ctx, p, msg); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	return nil
}

// Close detaches the pipe from the hub. Later calls are no-ops.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.hub.unsubscribeAll(p)
	close(p.done)
	return nil
}

func (p *Pipe) deliver(msg domain.SocketMessage) error {
	select {
	case p.inbox <- msg:
		return nil
	case <-p.done:
		return fmt.Errorf("%w: pipe closed", domain.ErrTransport)
	}
}

func (p *Pipe) run() {
	for {
		select {
		case msg := <-p.inbox:
			p.mu.Lock()
			h := p.handler
			p.mu.Unlock()
			if h != nil {
				h(msg)
			}
		case <-p.done:
			return
		}
	}
}

var _ domain.Transport = (*Pipe)(nil)
