package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/Goden-Gun/channel-bridge/pkg/logger"
	"github.com/Goden-Gun/channel-bridge/pkg/socket"
	"github.com/Goden-Gun/channel-bridge/pkg/tracing"
	"go.opentelemetry.io/otel/trace"
)

// ErrEventRequired indicates a push without an event name.
var ErrEventRequired = errors.New("bridge: event is required")

// Bridge multiplexes channels over one socket connection, correlates every
// push with its outcome and emits normalized events in occurrence order.
//
// All state is owned by the goroutine running Run. Commands and transport
// callbacks are queued to it, so they are handled one at a time in arrival
// order. Events must be consumed from Events on a goroutine other than the
// one issuing commands once the buffer can fill up.
type Bridge struct {
	opts     Options
	policy   *Policy
	observer Observer

	box      *mailbox
	events   chan Event
	conns    *connManager
	channels *registry
	pushes   *correlator

	loopCtx  context.Context
	started  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Stats is a point-in-time view of the bridge state.
type Stats struct {
	Connected bool `json:"connected"`
	Channels  int  `json:"channels"`
	Pending   int  `json:"pending"`
}

// New builds a bridge over opts.Transport. Call Run to start processing.
func New(opts Options) (*Bridge, error) {
	if opts.Transport == nil {
		return nil, errors.New("bridge: transport is required")
	}
	if opts.PushTimeout <= 0 {
		opts.PushTimeout = DefaultPushTimeout
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 256
	}
	policy := opts.Policy
	if policy == nil {
		policy = DefaultPolicy()
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &Bridge{
		opts:     opts,
		policy:   policy,
		observer: observer,
		box:      newMailbox(),
		events:   make(chan Event, opts.EventBuffer),
		conns:    &connManager{transport: opts.Transport, closeReplaced: opts.CloseReplaced},
		channels: newRegistry(),
		pushes:   newCorrelator(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Events returns the outbound event stream. It is closed when the bridge stops.
func (b *Bridge) Events() <-chan Event {
	return b.events
}

// Run processes commands and transport callbacks until ctx is done or Close
// is called. It may only be called once.
func (b *Bridge) Run(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return errors.New("bridge: already running")
	}
	defer b.shutdown()
	b.loopCtx = ctx
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.stop:
			return nil
		case <-b.box.signal:
			for _, fn := range b.box.take() {
				fn()
			}
		}
	}
}

// Close stops the loop, closes every connection it opened and closes the
// event stream. It must not be called from the goroutine running Run.
func (b *Bridge) Close() error {
	b.stopOnce.Do(func() { close(b.stop) })
	if b.started.CompareAndSwap(false, true) {
		b.shutdown()
		return nil
	}
	<-b.done
	return nil
}

func (b *Bridge) shutdown() {
	b.box.close()
	for id := range b.pushes.pending {
		if p, ok := b.pushes.take(id); ok && p.span != nil {
			p.span.End()
		}
	}
	b.conns.closeAll()
	close(b.events)
	close(b.done)
}

// do runs fn on the loop and waits for its result. Once queued, fn runs to
// completion even if ctx is cancelled meanwhile.
func (b *Bridge) do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res := make(chan error, 1)
	if !b.box.put(func() { res <- fn() }) {
		return ErrClosed
	}
	select {
	case err := <-res:
		return err
	case <-b.done:
		select {
		case err := <-res:
			return err
		default:
			return ErrClosed
		}
	}
}

// Connect opens a new socket connection and makes it current. The previous
// connection is left open unless Options.CloseReplaced is set, so channels
// created on it keep receiving messages.
func (b *Bridge) Connect(ctx context.Context, endpoint string, params socket.Payload) error {
	return b.do(ctx, func() error {
		return b.conns.connect(ctx, endpoint, params)
	})
}

// JoinOne creates a channel for topic, emits created and then joins it.
func (b *Bridge) JoinOne(ctx context.Context, topic string, payload socket.Payload) (Handle, error) {
	var h Handle
	err := b.do(ctx, func() error {
		if topic == "" {
			return ErrTopicRequired
		}
		conn, err := b.conns.require()
		if err != nil {
			return err
		}
		e := b.createChannel(conn, topic, payload)
		h = e.handle
		b.emit(Event{Kind: KindCreated, Topic: topic, Detail: CreatedDetail{Channel: e.handle}})
		b.join(ctx, e)
		return nil
	})
	return h, err
}

// JoinMany creates every channel of specs, emits a single createdBatch event
// and only then joins them, in order.
func (b *Bridge) JoinMany(ctx context.Context, specs []JoinSpec) ([]Created, error) {
	var created []Created
	err := b.do(ctx, func() error {
		conn, err := b.conns.require()
		if err != nil {
			return err
		}
		for _, s := range specs {
			if s.Topic == "" {
				return ErrTopicRequired
			}
		}
		entries := make([]*channelEntry, 0, len(specs))
		created = make([]Created, 0, len(specs))
		for _, s := range specs {
			e := b.createChannel(conn, s.Topic, s.Payload)
			entries = append(entries, e)
			created = append(created, Created{Topic: e.topic, Channel: e.handle})
		}
		b.emit(Event{Kind: KindCreatedBatch, Detail: CreatedBatchDetail{Channels: created}})
		for _, e := range entries {
			b.join(ctx, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Leave leaves the channel behind h and releases the handle. Outstanding
// pushes on the channel are not cancelled.
func (b *Bridge) Leave(ctx context.Context, h Handle) error {
	return b.do(ctx, func() error {
		e, err := b.channels.get(h)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"topic": e.topic, "channel": h}).Info("leave channel")
		_, span := tracing.StartPush(ctx, e.topic, string(PushLeave))
		b.wrap(e.ch.Leave(), e, PushLeave, nil, span)
		b.channels.release(h)
		return nil
	})
}

// Push sends event/payload on the channel behind h with the message push
// timeout. ref is echoed back in the outcome event.
func (b *Bridge) Push(ctx context.Context, h Handle, event string, payload socket.Payload, ref any) error {
	return b.do(ctx, func() error {
		e, err := b.channels.get(h)
		if err != nil {
			return err
		}
		if event == "" {
			return ErrEventRequired
		}
		log.WithFields(log.Fields{"topic": e.topic, "event": event, "ref": ref}).Debug("push")
		spanCtx, span := tracing.StartPush(ctx, e.topic, string(PushMsg))
		if b.opts.PropagateTrace {
			payload = tracing.InjectPayload(spanCtx, payload)
		}
		b.wrap(e.ch.Push(event, payload, b.opts.PushTimeout), e, PushMsg, ref, span)
		return nil
	})
}

// Stats reports connection, channel and pending push counts.
func (b *Bridge) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := b.do(ctx, func() error {
		if c, err := b.conns.require(); err == nil {
			s.Connected = c.Connected()
		}
		s.Channels = b.channels.len()
		s.Pending = b.pushes.len()
		return nil
	})
	return s, err
}

func (b *Bridge) createChannel(conn socket.Conn, topic string, payload socket.Payload) *channelEntry {
	e := b.channels.add(conn, topic, payload)
	e.ch.OnMessage(b.messageHandler(e.handle, topic))
	b.observer.ObserveChannelCreated(topic)
	log.WithFields(log.Fields{"topic": topic, "channel": e.handle}).Info("join channel")
	return e
}

func (b *Bridge) messageHandler(h Handle, topic string) socket.MessageHandler {
	return func(event string, payload any) any {
		b.box.put(func() {
			b.emit(Event{
				Kind:   KindMessage,
				Topic:  topic,
				Detail: MessageDetail{Channel: h, Event: event, Payload: payload},
			})
		})
		return payload
	}
}

func (b *Bridge) join(ctx context.Context, e *channelEntry) {
	_, span := tracing.StartPush(ctx, e.topic, string(PushJoin))
	b.wrap(e.ch.Join(), e, PushJoin, nil, span)
}

func (b *Bridge) wrap(push *socket.Push, e *channelEntry, kind PushKind, ref any, span trace.Span) {
	p := b.pushes.track(e, kind, ref, span)
	push.OnResolve(func(o socket.Outcome) {
		b.box.put(func() { b.resolve(p.id, o) })
	})
}

func (b *Bridge) resolve(id uint64, o socket.Outcome) {
	p, ok := b.pushes.take(id)
	if !ok {
		return
	}
	b.observer.ObservePush(p.kind, o.Status, time.Since(p.started))
	tracing.EndPush(p.span, string(o.Status))

	entry := log.WithFields(log.Fields{
		"topic":   p.topic,
		"type":    p.kind,
		"ref":     p.ref,
		"push_id": p.id,
	})
	switch o.Status {
	case socket.StatusOK:
		entry.Debug("push ok")
	case socket.StatusError:
		entry.WithField("reasons", o.Payload).Warn("push failed")
	default:
		entry.Warn("push timeout")
	}

	b.emit(Event{
		Kind:   outcomeKind(o.Status),
		Topic:  p.topic,
		Detail: PushDetail{Channel: p.handle, Type: p.kind, Ref: p.ref, Payload: o.Payload},
	})
}

// emit applies the policy and delivers ev. It blocks while the event buffer
// is full.
func (b *Bridge) emit(ev Event) {
	action := b.policy.Decide(ev.Kind, ev.Topic)
	b.observer.ObserveEvent(ev.Kind, action)
	switch action {
	case ActionSuppress:
		return
	case ActionLog:
		log.WithFields(log.Fields{"kind": ev.Kind, "topic": ev.Topic, "detail": ev.Detail}).Info("event not forwarded")
		return
	}
	var loopDone <-chan struct{}
	if b.loopCtx != nil {
		loopDone = b.loopCtx.Done()
	}
	select {
	case b.events <- ev:
	case <-loopDone:
	case <-b.stop:
	}
}
