package phoenix

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goden-Gun/channel-bridge/pkg/socket"
)

type inbound struct {
	event   string
	payload any
}

func openConn(t *testing.T, fs *fakeServer, opts Options) socket.Conn {
	t.Helper()
	c, err := New(opts).Open(context.Background(), fs.endpoint(), socket.Payload{"token": "abc"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func wait(t *testing.T, p *socket.Push) socket.Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	o, err := p.Wait(ctx)
	require.NoError(t, err)
	return o
}

func recorder(ch socket.Channel) chan inbound {
	got := make(chan inbound, 16)
	ch.OnMessage(func(event string, payload any) any {
		got <- inbound{event: event, payload: payload}
		return payload
	})
	return got
}

func TestEndpointURL(t *testing.T) {
	cases := []struct {
		name     string
		endpoint string
		params   socket.Payload
		want     string
	}{
		{"appends websocket", "ws://h/socket", socket.Payload{"token": "abc"}, "ws://h/socket/websocket?token=abc&vsn=2.0.0"},
		{"keeps websocket suffix", "wss://h/socket/websocket", nil, "wss://h/socket/websocket?vsn=2.0.0"},
		{"http becomes ws", "http://h/socket/", nil, "ws://h/socket/websocket?vsn=2.0.0"},
		{"https becomes wss", "https://h/socket", socket.Payload{"n": 42}, "wss://h/socket/websocket?n=42&vsn=2.0.0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EndpointURL(tc.endpoint, tc.params)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := EndpointURL("ftp://h/socket", nil)
	assert.Error(t, err)
}

func TestSerializer(t *testing.T) {
	data, err := Encode(Message{Ref: "1", Topic: TopicPhoenix, Event: EventHeartbeat})
	require.NoError(t, err)
	assert.JSONEq(t, `[null,"1","phoenix","heartbeat",{}]`, string(data))

	m, err := Decode([]byte(`["3","4","room:1","phx_reply",{"status":"ok","response":{}}]`))
	require.NoError(t, err)
	assert.Equal(t, "3", m.JoinRef)
	assert.Equal(t, "4", m.Ref)
	assert.Equal(t, "room:1", m.Topic)
	assert.Equal(t, EventReply, m.Event)
	assert.JSONEq(t, `{"status":"ok","response":{}}`, string(m.Payload))

	m, err = Decode([]byte(`[null,null,"room:1","new_msg",{"body":"hi"}]`))
	require.NoError(t, err)
	assert.Empty(t, m.JoinRef)
	assert.Empty(t, m.Ref)

	_, err = Decode([]byte(`{"topic":"room:1"}`))
	assert.ErrorIs(t, err, ErrMalformedFrame)
	_, err = Decode([]byte(`["1","2","room:1"]`))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestConn_JoinAndPush(t *testing.T) {
	fs := newFakeServer(t, func(m Message) (string, any, bool) {
		switch m.Event {
		case EventJoin:
			return "ok", map[string]any{"joined": true}, true
		case "forbidden":
			return "error", map[string]any{"reason": "unauthorized"}, true
		case "echo":
			var body map[string]any
			_ = json.Unmarshal(m.Payload, &body)
			return "ok", body, true
		}
		return "", nil, false
	})
	c := openConn(t, fs, Options{})

	ch := c.Channel("room:1", socket.Payload{"since": 1})
	assert.Equal(t, "room:1", ch.Topic())
	join := ch.Join()

	frame := fs.next(t)
	assert.Equal(t, EventJoin, frame.Event)
	assert.Equal(t, "room:1", frame.Topic)
	assert.Equal(t, frame.Ref, frame.JoinRef)
	assert.JSONEq(t, `{"since":1}`, string(frame.Payload))

	o := wait(t, join)
	assert.Equal(t, socket.StatusOK, o.Status)
	assert.Equal(t, map[string]any{"joined": true}, o.Payload)
	assert.True(t, c.Connected())

	path, q := fs.request(0)
	assert.Equal(t, "abc", q.Get("token"))
	assert.Equal(t, Vsn, q.Get("vsn"))
	assert.Equal(t, "/socket/websocket", path)

	o = wait(t, ch.Push("echo", socket.Payload{"text": "hi"}, time.Second))
	assert.Equal(t, socket.StatusOK, o.Status)
	assert.Equal(t, map[string]any{"text": "hi"}, o.Payload)
	echo := fs.next(t)
	assert.Equal(t, frame.Ref, echo.JoinRef)

	o = wait(t, ch.Push("forbidden", nil, time.Second))
	assert.Equal(t, socket.StatusError, o.Status)
	assert.Equal(t, map[string]any{"reason": "unauthorized"}, o.Payload)
}

func TestConn_PushTimeoutDropsLateReply(t *testing.T) {
	fs := newFakeServer(t, joinOK)
	c := openConn(t, fs, Options{})

	ch := c.Channel("room:1", nil)
	require.Equal(t, socket.StatusOK, wait(t, ch.Join()).Status)
	fs.next(t)

	p := ch.Push("slow", nil, 50*time.Millisecond)
	frame := fs.next(t)
	assert.Equal(t, socket.StatusTimeout, wait(t, p).Status)

	fs.send(replyFrame(frame, "ok", map[string]any{}))
	// a later push still round trips, so the late reply has been processed
	p2 := ch.Push("slow", nil, 50*time.Millisecond)
	fs.next(t)
	wait(t, p2)
	assert.Equal(t, socket.StatusTimeout, wait(t, p).Status)
}

func TestConn_BuffersPushesUntilJoined(t *testing.T) {
	fs := newFakeServer(t, nil)
	c := openConn(t, fs, Options{})

	ch := c.Channel("room:1", nil)
	join := ch.Join()
	frame := fs.next(t)
	require.Equal(t, EventJoin, frame.Event)

	early := ch.Push("early", socket.Payload{"n": 1}, time.Second)
	fs.expectNone(t, 50*time.Millisecond)

	fs.send(replyFrame(frame, "ok", map[string]any{}))
	assert.Equal(t, socket.StatusOK, wait(t, join).Status)

	sent := fs.next(t)
	assert.Equal(t, "early", sent.Event)
	assert.Equal(t, frame.Ref, sent.JoinRef)

	fs.send(replyFrame(sent, "ok", map[string]any{"n": 1}))
	assert.Equal(t, socket.StatusOK, wait(t, early).Status)
}

func TestConn_PushBeforeJoin(t *testing.T) {
	fs := newFakeServer(t, joinOK)
	c := openConn(t, fs, Options{})

	ch := c.Channel("room:1", nil)
	o := wait(t, ch.Push("msg", nil, time.Second))
	assert.Equal(t, socket.StatusError, o.Status)

	require.Equal(t, socket.StatusOK, wait(t, ch.Join()).Status)
	assert.Equal(t, socket.StatusError, wait(t, ch.Join()).Status, "join twice")
}

func TestConn_InboundMessages(t *testing.T) {
	fs := newFakeServer(t, joinOK)
	c := openConn(t, fs, Options{})

	ch := c.Channel("room:1", nil)
	got := recorder(ch)
	require.Equal(t, socket.StatusOK, wait(t, ch.Join()).Status)
	join := fs.next(t)

	other := c.Channel("room:2", nil)
	otherGot := recorder(other)
	require.Equal(t, socket.StatusOK, wait(t, other.Join()).Status)
	fs.next(t)

	fs.send(Message{JoinRef: "999", Topic: "room:1", Event: "stale", Payload: rawJSON(map[string]any{})})
	fs.send(Message{JoinRef: join.Ref, Topic: "room:1", Event: "new_msg", Payload: rawJSON(map[string]any{"body": "hi"})})
	fs.send(Message{Topic: "room:1", Event: "broadcast", Payload: rawJSON(map[string]any{"n": 2})})

	select {
	case in := <-got:
		assert.Equal(t, "new_msg", in.event)
		assert.Equal(t, map[string]any{"body": "hi"}, in.payload)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
	select {
	case in := <-got:
		assert.Equal(t, "broadcast", in.event)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast not delivered")
	}
	assert.Empty(t, otherGot)
}

func TestConn_Leave(t *testing.T) {
	fs := newFakeServer(t, joinOK)
	c := openConn(t, fs, Options{})

	ch := c.Channel("room:1", nil)
	got := recorder(ch)
	require.Equal(t, socket.StatusOK, wait(t, ch.Join()).Status)
	join := fs.next(t)

	o := wait(t, ch.Leave())
	assert.Equal(t, socket.StatusOK, o.Status)
	leave := fs.next(t)
	assert.Equal(t, EventLeave, leave.Event)
	assert.Equal(t, join.Ref, leave.JoinRef)

	fs.send(Message{JoinRef: join.Ref, Topic: "room:1", Event: "new_msg", Payload: rawJSON(map[string]any{})})

	// a second channel proves the frame above has been read
	second := c.Channel("room:1", nil)
	secondGot := recorder(second)
	require.Equal(t, socket.StatusOK, wait(t, second.Join()).Status)
	fs.next(t)
	fs.send(Message{Topic: "room:1", Event: "after", Payload: rawJSON(map[string]any{})})
	select {
	case in := <-secondGot:
		assert.Equal(t, "after", in.event)
	case <-time.After(2 * time.Second):
		t.Fatal("second channel not delivered")
	}
	assert.Empty(t, got)

	assert.Equal(t, socket.StatusOK, wait(t, ch.Leave()).Status, "leave on a closed channel")
}

func TestConn_PushAfterServerClose(t *testing.T) {
	fs := newFakeServer(t, joinOK)
	c := openConn(t, fs, Options{})

	ch := c.Channel("room:1", nil)
	got := recorder(ch)
	require.Equal(t, socket.StatusOK, wait(t, ch.Join()).Status)
	join := fs.next(t)

	fs.send(Message{JoinRef: join.Ref, Topic: "room:1", Event: EventClose, Payload: rawJSON(map[string]any{})})
	select {
	case in := <-got:
		assert.Equal(t, EventClose, in.event)
	case <-time.After(2 * time.Second):
		t.Fatal("phx_close not delivered")
	}

	start := time.Now()
	o := wait(t, ch.Push("msg", nil, 10*time.Second))
	assert.Equal(t, socket.StatusError, o.Status)
	assert.Equal(t, map[string]any{"reason": "channel closed"}, o.Payload)
	assert.Less(t, time.Since(start), time.Second)
	fs.expectNone(t, 50*time.Millisecond)
}

func TestConn_ReconnectRejoins(t *testing.T) {
	fs := newFakeServer(t, joinOK)
	c := openConn(t, fs, Options{ReconnectBackoff: 10 * time.Millisecond})

	ch := c.Channel("room:1", nil)
	got := recorder(ch)
	require.Equal(t, socket.StatusOK, wait(t, ch.Join()).Status)
	first := fs.next(t)

	fs.drop()

	rejoin := fs.next(t)
	assert.Equal(t, EventJoin, rejoin.Event)
	assert.Equal(t, "room:1", rejoin.Topic)
	assert.NotEqual(t, first.Ref, rejoin.Ref)
	assert.Equal(t, rejoin.Ref, rejoin.JoinRef)
	assert.Equal(t, 2, fs.connCount())

	fs.send(Message{JoinRef: rejoin.Ref, Topic: "room:1", Event: "new_msg", Payload: rawJSON(map[string]any{})})
	select {
	case in := <-got:
		assert.Equal(t, "new_msg", in.event)
	case <-time.After(2 * time.Second):
		t.Fatal("message after rejoin not delivered")
	}
}

func TestConn_Heartbeat(t *testing.T) {
	fs := newFakeServer(t, joinOK)
	c := openConn(t, fs, Options{HeartbeatInterval: 20 * time.Millisecond})

	require.Eventually(t, func() bool { return fs.heartbeats() >= 3 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, c.Connected())
	assert.Equal(t, 1, fs.connCount())
}

func TestConn_CloseResolvesOutstanding(t *testing.T) {
	fs := newFakeServer(t, joinOK)
	c := openConn(t, fs, Options{})

	ch := c.Channel("room:1", nil)
	require.Equal(t, socket.StatusOK, wait(t, ch.Join()).Status)
	fs.next(t)

	p := ch.Push("slow", nil, time.Minute)
	fs.next(t)

	require.NoError(t, c.Close())
	assert.Equal(t, socket.StatusTimeout, wait(t, p).Status)
	assert.False(t, c.Connected())
	require.NoError(t, c.Close())
}

func TestConn_DialFailureRetries(t *testing.T) {
	c, err := New(Options{ReconnectBackoff: 5 * time.Millisecond, DialTimeout: 50 * time.Millisecond}).
		Open(context.Background(), "ws://127.0.0.1:1/socket", nil)
	require.NoError(t, err)

	ch := c.Channel("room:1", nil)
	join := ch.Join()
	time.Sleep(30 * time.Millisecond)
	assert.False(t, c.Connected())

	require.NoError(t, c.Close())
	assert.Equal(t, socket.StatusTimeout, wait(t, join).Status)
}
