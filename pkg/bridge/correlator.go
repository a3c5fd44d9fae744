package bridge

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Goden-Gun/channel-bridge/pkg/socket"
)

type pendingPush struct {
	id      uint64
	handle  Handle
	topic   string
	kind    PushKind
	ref     any
	started time.Time
	span    trace.Span
}

// correlator tracks outstanding pushes by id until their single outcome
// arrives. Entries are deleted on resolution.
type correlator struct {
	next    uint64
	pending map[uint64]*pendingPush
}

func newCorrelator() *correlator {
	return &correlator{pending: make(map[uint64]*pendingPush)}
}

func (c *correlator) track(e *channelEntry, kind PushKind, ref any, span trace.Span) *pendingPush {
	c.next++
	p := &pendingPush{
		id:      c.next,
		handle:  e.handle,
		topic:   e.topic,
		kind:    kind,
		ref:     ref,
		started: time.Now(),
		span:    span,
	}
	c.pending[p.id] = p
	return p
}

func (c *correlator) take(id uint64) (*pendingPush, bool) {
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	return p, ok
}

func (c *correlator) len() int {
	return len(c.pending)
}

func outcomeKind(s socket.Status) Kind {
	switch s {
	case socket.StatusOK:
		return KindPushOk
	case socket.StatusError:
		return KindPushError
	default:
		return KindPushTimeout
	}
}
