package socket

import (
	"context"
	"sync"
)

// Status is the tagged outcome of a push.
type Status string

const (
	StatusOK      Status = "ok"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// Outcome is the resolution of a push. Payload is the server response for
// ok, the reasons for error, and nil for timeout.
type Outcome struct {
	Status  Status
	Payload any
}

// Push is a single-assignment future for one outstanding protocol operation.
type Push struct {
	mu        sync.Mutex
	resolved  bool
	outcome   Outcome
	callbacks []func(Outcome)
	done      chan struct{}
}

// NewPush returns an unresolved push.
func NewPush() *Push {
	return &Push{done: make(chan struct{})}
}

// Resolve assigns the outcome and fires registered callbacks. Only the first
// call has any effect; it reports whether this call resolved the push.
func (p *Push) Resolve(o Outcome) bool {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		return false
	}
	p.resolved = true
	p.outcome = o
	callbacks := p.callbacks
	p.callbacks = nil
	close(p.done)
	p.mu.Unlock()

	for _, cb := range callbacks {
		cb(o)
	}
	return true
}

// OnResolve registers fn to be called with the outcome. If the push is
// already resolved fn runs immediately on the calling goroutine.
func (p *Push) OnResolve(fn func(Outcome)) {
	p.mu.Lock()
	if p.resolved {
		o := p.outcome
		p.mu.Unlock()
		fn(o)
		return
	}
	p.callbacks = append(p.callbacks, fn)
	p.mu.Unlock()
}

// Done is closed once the push is resolved. The bridge only uses
// callbacks; Done and Wait are for callers driving a Conn directly.
func (p *Push) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the push resolves or ctx is done. It is the blocking
// form of OnResolve for code that uses a Conn without a bridge.
func (p *Push) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
