// Package sink forwards normalized bridge events to external systems.
package sink

import (
	"context"

	"github.com/Goden-Gun/channel-bridge/pkg/bridge"
	log "github.com/Goden-Gun/channel-bridge/pkg/logger"
)

// Sink receives every forwarded event.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev bridge.Event) error
}

// Forwarder drains a bridge event stream into sinks in arrival order.
// A failing sink is logged and does not stop the others.
type Forwarder struct {
	sinks []Sink
}

func NewForwarder(sinks ...Sink) *Forwarder {
	return &Forwarder{sinks: sinks}
}

// Run forwards until events is closed (returns nil) or ctx is done.
func (f *Forwarder) Run(ctx context.Context, events <-chan bridge.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			f.forward(ctx, ev)
		}
	}
}

func (f *Forwarder) forward(ctx context.Context, ev bridge.Event) {
	for _, s := range f.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"sink":  s.Name(),
				"kind":  ev.Kind,
				"topic": ev.Topic,
			}).Warn("sink publish failed")
		}
	}
}
