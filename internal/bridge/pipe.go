package bridge

import (
	"context"
	"sync"
)

// Pipe is an in-process UI channel. The panel calls Send and reads
// Responses; the router side uses Receive and Post. Delivery order is kept in
// both directions.
type Pipe struct {
	requests  chan Request
	responses chan Response
	done      chan struct{}
	once      sync.Once
}

func NewPipe(buffer int) *Pipe {
	return &Pipe{
		requests:  make(chan Request, buffer),
		responses: make(chan Response, buffer),
		done:      make(chan struct{}),
	}
}

// Send queues a request for the router.
func (p *Pipe) Send(req Request) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.requests <- req:
		return nil
	case <-p.done:
		return ErrClosed
	}
}

// Responses is never closed; pair it with Done.
func (p *Pipe) Responses() <-chan Response {
	return p.responses
}

// Done is closed by Close.
func (p *Pipe) Done() <-chan struct{} {
	return p.done
}

func (p *Pipe) Receive(ctx context.Context) (Request, error) {
	select {
	case req := <-p.requests:
		return req, nil
	case <-p.done:
		return Request{}, ErrClosed
	case <-ctx.Done():
		return Request{}, ctx.Err()
	}
}

func (p *Pipe) Post(resp Response) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.responses <- resp:
		return nil
	case <-p.done:
		return ErrClosed
	}
}

// Close hangs up both directions. Safe to call more than once.
func (p *Pipe) Close() {
	p.once.Do(func() {
		close(p.done)
	})
}
