package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Goden-Gun/channel-bridge/pkg/socket"
)

type fakeTransport struct {
	mu       sync.Mutex
	conns    []*fakeConn
	openErr  error
	autoJoin bool
}

func (t *fakeTransport) Open(_ context.Context, endpoint string, params socket.Payload) (socket.Conn, error) {
	if t.openErr != nil {
		return nil, t.openErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	c := &fakeConn{endpoint: endpoint, params: params, autoJoin: t.autoJoin}
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *fakeTransport) conn(i int) *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[i]
}

type fakeConn struct {
	endpoint string
	params   socket.Payload
	autoJoin bool

	mu       sync.Mutex
	channels []*fakeChannel
	closed   bool
}

func (c *fakeConn) Channel(topic string, payload socket.Payload) socket.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := &fakeChannel{topic: topic, payload: payload, autoJoin: c.autoJoin}
	c.channels = append(c.channels, ch)
	return ch
}

func (c *fakeConn) Connected() bool { return true }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) channel(i int) *fakeChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channels[i]
}

type fakePush struct {
	op      string
	event   string
	payload socket.Payload
	timeout time.Duration
	push    *socket.Push
}

type fakeChannel struct {
	topic    string
	payload  socket.Payload
	autoJoin bool

	mu      sync.Mutex
	handler socket.MessageHandler
	pushes  []*fakePush
}

func (ch *fakeChannel) Topic() string { return ch.topic }

func (ch *fakeChannel) OnMessage(h socket.MessageHandler) {
	ch.mu.Lock()
	ch.handler = h
	ch.mu.Unlock()
}

func (ch *fakeChannel) record(p *fakePush) *socket.Push {
	p.push = socket.NewPush()
	ch.mu.Lock()
	ch.pushes = append(ch.pushes, p)
	ch.mu.Unlock()
	return p.push
}

func (ch *fakeChannel) Join() *socket.Push {
	p := ch.record(&fakePush{op: "join"})
	if ch.autoJoin {
		p.Resolve(socket.Outcome{Status: socket.StatusOK, Payload: map[string]any{}})
	}
	return p
}

func (ch *fakeChannel) Leave() *socket.Push {
	return ch.record(&fakePush{op: "leave"})
}

func (ch *fakeChannel) Push(event string, payload socket.Payload, d time.Duration) *socket.Push {
	return ch.record(&fakePush{op: "msg", event: event, payload: payload, timeout: d})
}

func (ch *fakeChannel) last() *fakePush {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.pushes[len(ch.pushes)-1]
}

func (ch *fakeChannel) deliver(event string, payload any) any {
	ch.mu.Lock()
	h := ch.handler
	ch.mu.Unlock()
	return h(event, payload)
}

type fakeObserver struct {
	mu      sync.Mutex
	pushes  []socket.Status
	actions map[Kind][]Action
	created int
}

func (o *fakeObserver) ObservePush(_ PushKind, status socket.Status, _ time.Duration) {
	o.mu.Lock()
	o.pushes = append(o.pushes, status)
	o.mu.Unlock()
}

func (o *fakeObserver) ObserveEvent(kind Kind, action Action) {
	o.mu.Lock()
	if o.actions == nil {
		o.actions = map[Kind][]Action{}
	}
	o.actions[kind] = append(o.actions[kind], action)
	o.mu.Unlock()
}

func (o *fakeObserver) ObserveChannelCreated(string) {
	o.mu.Lock()
	o.created++
	o.mu.Unlock()
}

func startBridge(t *testing.T, tr *fakeTransport, opts Options) *Bridge {
	t.Helper()
	opts.Transport = tr
	b, err := New(opts)
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() { runErr <- b.Run(context.Background()) }()
	t.Cleanup(func() {
		require.NoError(t, b.Close())
		require.NoError(t, <-runErr)
	})
	return b
}

func nextEvent(t *testing.T, b *Bridge) Event {
	t.Helper()
	select {
	case ev, ok := <-b.Events():
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

// settle waits until every callback queued so far has run on the loop.
func settle(t *testing.T, b *Bridge) {
	t.Helper()
	_, err := b.Stats(context.Background())
	require.NoError(t, err)
}

func requireNoEvent(t *testing.T, b *Bridge) {
	t.Helper()
	settle(t, b)
	select {
	case ev := <-b.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

var errOpen = errors.New("dial refused")
