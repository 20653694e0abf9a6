package taskbridge

import (
	"errors"
	"sync"
)

// ErrChannelClosed is returned by Send and Subscribe on a closed channel.
var ErrChannelClosed = errors.New("channel closed")

// Channel is the minimal cross-context message transport: send a message to
// the peer, subscribe to messages from the peer. Implementations deliver
// whole messages in arrival order to every subscriber; they do not filter.
// Foreign traffic handling belongs to the protocol layer. The returned
// unsubscribe function is idempotent.
type Channel interface {
	Send(msg *Message) error
	Subscribe(handler func(*Message)) (unsubscribe func(), err error)
}

// PipeEnd is one end of an in-memory channel pair. Delivery is synchronous:
// Send invokes the peer's subscribers before returning.
type PipeEnd struct {
	mu       sync.Mutex
	peer     *PipeEnd
	handlers map[int]func(*Message)
	nextID   int
	closed   bool
}

// Pipe creates a connected pair of in-memory channel ends. Used by tests and
// by in-process host/child embeddings.
func Pipe() (*PipeEnd, *PipeEnd) {
	a := &PipeEnd{handlers: make(map[int]func(*Message))}
	b := &PipeEnd{handlers: make(map[int]func(*Message))}
	a.peer = b
	b.peer = a
	return a, b
}

// Send delivers the message to the peer end's subscribers.
func (p *PipeEnd) Send(msg *Message) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrChannelClosed
	}
	peer := p.peer
	p.mu.Unlock()
	peer.dispatch(msg)
	return nil
}

// Subscribe registers a handler for messages sent by the peer end.
func (p *PipeEnd) Subscribe(handler func(*Message)) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrChannelClosed
	}
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, id)
	}, nil
}

// Close tears down this end. Subsequent sends from either end fail.
func (p *PipeEnd) Close() {
	p.mu.Lock()
	p.closed = true
	p.handlers = make(map[int]func(*Message))
	p.mu.Unlock()
}

func (p *PipeEnd) dispatch(msg *Message) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	handlers := make([]func(*Message), 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()
	for _, h := range handlers {
		h(msg)
	}
}
