package phoenix

import (
	"time"

	log "github.com/Goden-Gun/channel-bridge/pkg/logger"
	"github.com/Goden-Gun/channel-bridge/pkg/socket"
)

type channelState int

const (
	stateClosed channelState = iota
	stateJoining
	stateJoined
	stateLeaving
	stateErrored
)

func (s channelState) String() string {
	switch s {
	case stateJoining:
		return "joining"
	case stateJoined:
		return "joined"
	case stateLeaving:
		return "leaving"
	case stateErrored:
		return "errored"
	default:
		return "closed"
	}
}

type push struct {
	ch      *channel
	event   string
	payload socket.Payload
	timeout time.Duration
	future  *socket.Push

	// guarded by conn.mu
	ref   string
	timer *time.Timer
}

// channel fields below the topic are guarded by conn.mu.
type channel struct {
	conn   *conn
	topic  string
	params socket.Payload

	state       channelState
	joined      bool
	joinRef     string
	joinPush    *push
	pushBuf     []*push
	rejoinTimer *time.Timer
	handler     socket.MessageHandler
}

func (ch *channel) Topic() string { return ch.topic }

func (ch *channel) OnMessage(h socket.MessageHandler) {
	ch.conn.mu.Lock()
	ch.handler = h
	ch.conn.mu.Unlock()
}

// Join may be called once per channel. The returned push resolves with the
// first join reply; rejoins after a drop are handled internally.
func (ch *channel) Join() *socket.Push {
	c := ch.conn
	c.mu.Lock()
	if ch.joined {
		c.mu.Unlock()
		return resolved(socket.StatusError, map[string]any{"reason": "already joined"})
	}
	ch.joined = true
	ch.state = stateJoining
	p := &push{ch: ch, event: EventJoin, payload: ch.params, timeout: c.opts.DefaultTimeout, future: socket.NewPush()}
	ch.joinPush = p
	c.mu.Unlock()
	c.sendPush(p)
	return p.future
}

func (ch *channel) Leave() *socket.Push {
	c := ch.conn
	c.mu.Lock()
	ch.stopRejoin()
	canPush := ch.state == stateJoined && c.ws != nil
	ch.state = stateLeaving
	if !canPush {
		ch.closeLocked()
		c.mu.Unlock()
		return resolved(socket.StatusOK, map[string]any{})
	}
	p := &push{ch: ch, event: EventLeave, timeout: c.opts.DefaultTimeout, future: socket.NewPush()}
	c.mu.Unlock()
	c.sendPush(p)
	return p.future
}

// Push sends immediately when joined, otherwise buffers until the join
// succeeds. The timeout restarts when a buffered push is sent. A channel
// that is leaving or was closed by the server rejects pushes.
func (ch *channel) Push(event string, payload socket.Payload, d time.Duration) *socket.Push {
	c := ch.conn
	if d <= 0 {
		d = c.opts.DefaultTimeout
	}
	p := &push{ch: ch, event: event, payload: payload, timeout: d, future: socket.NewPush()}
	c.mu.Lock()
	if !ch.joined {
		c.mu.Unlock()
		return resolved(socket.StatusError, map[string]any{"reason": "not joined"})
	}
	if ch.state == stateClosed || ch.state == stateLeaving {
		c.mu.Unlock()
		return resolved(socket.StatusError, map[string]any{"reason": "channel closed"})
	}
	if ch.state == stateJoined && c.ws != nil {
		c.mu.Unlock()
		c.sendPush(p)
		return p.future
	}
	ch.pushBuf = append(ch.pushBuf, p)
	p.timer = time.AfterFunc(d, func() { ch.expireBuffered(p) })
	c.mu.Unlock()
	return p.future
}

func (ch *channel) expireBuffered(p *push) {
	c := ch.conn
	c.mu.Lock()
	found := false
	for i, q := range ch.pushBuf {
		if q == p {
			ch.pushBuf = append(ch.pushBuf[:i], ch.pushBuf[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if found {
		log.WithFields(log.Fields{"topic": ch.topic, "event": p.event}).Warn("buffered push timeout")
		p.future.Resolve(socket.Outcome{Status: socket.StatusTimeout})
	}
}

// settleLocked applies the channel state transition for an outcome of p and
// returns the buffered pushes to flush.
func (ch *channel) settleLocked(p *push, status socket.Status) []*push {
	switch {
	case p == ch.joinPush:
		if ch.state != stateJoining {
			return nil
		}
		if status != socket.StatusOK {
			ch.state = stateErrored
			ch.scheduleRejoinLocked()
			return nil
		}
		ch.state = stateJoined
		flush := ch.pushBuf
		ch.pushBuf = nil
		for _, q := range flush {
			q.timer.Stop()
		}
		return flush
	case p.event == EventLeave:
		ch.closeLocked()
	}
	return nil
}

func (ch *channel) scheduleRejoinLocked() {
	c := ch.conn
	if c.closed {
		return
	}
	ch.stopRejoin()
	ch.rejoinTimer = time.AfterFunc(c.opts.RejoinAfter, func() { c.rejoin(ch) })
}

func (ch *channel) stopRejoin() {
	if ch.rejoinTimer != nil {
		ch.rejoinTimer.Stop()
		ch.rejoinTimer = nil
	}
}

// closeLocked marks the channel closed and detaches it from its connection.
func (ch *channel) closeLocked() {
	ch.state = stateClosed
	ch.stopRejoin()
	c := ch.conn
	for i, other := range c.channels {
		if other == ch {
			c.channels = append(c.channels[:i], c.channels[i+1:]...)
			break
		}
	}
}

func resolved(status socket.Status, payload any) *socket.Push {
	p := socket.NewPush()
	p.Resolve(socket.Outcome{Status: status, Payload: payload})
	return p
}
