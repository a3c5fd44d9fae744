package phoenix

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	log "github.com/Goden-Gun/channel-bridge/pkg/logger"
	"github.com/Goden-Gun/channel-bridge/pkg/socket"
)

type conn struct {
	opts   Options
	url    string
	logURL string

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	// writeMu serializes frame writes; it is taken before mu when both are
	// needed.
	writeMu sync.Mutex

	mu       sync.Mutex
	ws       *websocket.Conn
	closed   bool
	ref      uint64
	sendBuf  [][]byte
	channels []*channel
	pending  map[string]*push
	hbRef    string
}

func newConn(opts Options, u string) *conn {
	return &conn{
		opts:    opts,
		url:     u,
		logURL:  redact(u),
		pending: make(map[string]*push),
	}
}

func (c *conn) Channel(topic string, payload socket.Payload) socket.Channel {
	ch := &channel{conn: c, topic: topic, params: payload}
	c.mu.Lock()
	c.channels = append(c.channels, ch)
	c.mu.Unlock()
	return ch
}

func (c *conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws != nil && !c.closed
}

// Close stops reconnecting, closes the socket and resolves every outstanding
// push with a timeout.
func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		c.closed = true
		ws := c.ws
		var orphans []*push
		for _, p := range c.pending {
			orphans = append(orphans, p)
		}
		c.pending = make(map[string]*push)
		for _, ch := range c.channels {
			orphans = append(orphans, ch.pushBuf...)
			ch.pushBuf = nil
			ch.stopRejoin()
		}
		c.channels = nil
		c.sendBuf = nil
		c.mu.Unlock()

		if ws != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = ws.Close()
		}
		c.wg.Wait()
		for _, p := range orphans {
			if p.timer != nil {
				p.timer.Stop()
			}
			p.future.Resolve(socket.Outcome{Status: socket.StatusTimeout})
		}
		log.WithField("url", c.logURL).Info("socket closed")
	})
	return nil
}

func (c *conn) run(ctx context.Context) {
	defer c.wg.Done()
	retry := c.opts.ReconnectBackoff
	for {
		ws, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).WithFields(log.Fields{"url": c.logURL, "retry_in": retry.String()}).Warn("socket dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(retry):
				if retry < c.opts.MaxReconnectBackoff {
					retry *= 2
					if retry > c.opts.MaxReconnectBackoff {
						retry = c.opts.MaxReconnectBackoff
					}
				}
				continue
			}
		}
		retry = c.opts.ReconnectBackoff
		c.serve(ctx, ws)
		if ctx.Err() != nil {
			return
		}
	}
}

func (c *conn) dial(ctx context.Context) (*websocket.Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()
	ws, resp, err := c.opts.Dialer.DialContext(dctx, c.url, c.opts.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return ws, err
}

// serve owns ws until it fails or the connection is closed.
func (c *conn) serve(ctx context.Context, ws *websocket.Conn) {
	if !c.opened(ws) {
		return
	}
	log.WithField("url", c.logURL).Info("socket open")

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	c.wg.Add(1)
	go c.heartbeat(hbCtx, ws)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).WithField("url", c.logURL).Warn("socket dropped")
			}
			break
		}
		msg, err := Decode(data)
		if err != nil {
			log.WithError(err).Warn("dropping inbound frame")
			continue
		}
		c.dispatch(msg)
	}
	stopHeartbeat()
	_ = ws.Close()
	c.dropped(ws)
}

// opened installs ws, flushes buffered frames in order and rejoins errored
// channels.
func (c *conn) opened(ws *websocket.Conn) bool {
	c.writeMu.Lock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.writeMu.Unlock()
		_ = ws.Close()
		return false
	}
	c.ws = ws
	buf := c.sendBuf
	c.sendBuf = nil
	var rejoin []*channel
	for _, ch := range c.channels {
		if ch.state == stateErrored {
			rejoin = append(rejoin, ch)
		}
	}
	c.mu.Unlock()
	for _, data := range buf {
		c.writeLocked(ws, data)
	}
	c.writeMu.Unlock()

	for _, ch := range rejoin {
		c.rejoin(ch)
	}
	return true
}

func (c *conn) dropped(ws *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == ws {
		c.ws = nil
	}
	c.hbRef = ""
	for _, ch := range c.channels {
		if ch.state == stateJoined || ch.state == stateJoining {
			ch.state = stateErrored
		}
		ch.stopRejoin()
	}
}

func (c *conn) heartbeat(ctx context.Context, ws *websocket.Conn) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.hbRef != "" {
				c.hbRef = ""
				c.mu.Unlock()
				log.WithField("url", c.logURL).Warn("heartbeat timeout, closing socket")
				_ = ws.Close()
				return
			}
			ref := c.nextRefLocked()
			c.hbRef = ref
			c.mu.Unlock()
			data, err := Encode(Message{Ref: ref, Topic: TopicPhoenix, Event: EventHeartbeat})
			if err != nil {
				continue
			}
			c.write(ws, data)
		}
	}
}

func (c *conn) nextRefLocked() string {
	c.ref++
	return strconv.FormatUint(c.ref, 10)
}

// send writes m on the open socket or buffers it until the socket opens.
func (c *conn) send(m Message) {
	data, err := Encode(m)
	if err != nil {
		log.WithError(err).WithField("topic", m.Topic).Warn("encode frame failed")
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	ws := c.ws
	if ws == nil {
		c.sendBuf = append(c.sendBuf, data)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.write(ws, data)
}

func (c *conn) write(ws *websocket.Conn, data []byte) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.writeLocked(ws, data)
}

func (c *conn) writeLocked(ws *websocket.Conn, data []byte) {
	_ = ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		log.WithError(err).WithField("url", c.logURL).Warn("socket write failed")
	}
}

func (c *conn) dispatch(m Message) {
	if m.Event == EventReply {
		if m.Topic == TopicPhoenix {
			c.mu.Lock()
			if m.Ref == c.hbRef {
				c.hbRef = ""
			}
			c.mu.Unlock()
			return
		}
		c.reply(m)
		return
	}
	c.deliver(m)
}

func (c *conn) reply(m Message) {
	var r reply
	if err := json.Unmarshal(m.Payload, &r); err != nil {
		log.WithError(err).WithField("topic", m.Topic).Warn("malformed reply")
		return
	}
	c.mu.Lock()
	p, ok := c.pending[m.Ref]
	if !ok {
		c.mu.Unlock()
		log.WithFields(log.Fields{"topic": m.Topic, "ref": m.Ref, "status": r.Status}).Info("late or unknown reply dropped")
		return
	}
	delete(c.pending, m.Ref)
	if p.timer != nil {
		p.timer.Stop()
	}
	status := socket.StatusError
	if r.Status == string(socket.StatusOK) {
		status = socket.StatusOK
	}
	flush := p.ch.settleLocked(p, status)
	c.mu.Unlock()

	outcome := socket.Outcome{Status: status, Payload: decodePayload(r.Response)}
	if !p.future.Resolve(outcome) {
		log.WithFields(log.Fields{"topic": m.Topic, "event": p.event, "status": status}).Info("rejoin reply")
	}
	for _, q := range flush {
		c.sendPush(q)
	}
}

// deliver routes an inbound event to every channel of its topic whose join
// ref matches.
func (c *conn) deliver(m Message) {
	var handlers []socket.MessageHandler
	c.mu.Lock()
	for _, ch := range append([]*channel(nil), c.channels...) {
		if ch.topic != m.Topic {
			continue
		}
		if m.JoinRef != "" && m.JoinRef != ch.joinRef {
			continue
		}
		switch m.Event {
		case EventError:
			if ch.state == stateJoined || ch.state == stateJoining {
				ch.state = stateErrored
				ch.scheduleRejoinLocked()
			}
		case EventClose:
			ch.closeLocked()
		}
		if ch.handler != nil {
			handlers = append(handlers, ch.handler)
		}
	}
	c.mu.Unlock()
	if len(handlers) == 0 {
		return
	}
	payload := decodePayload(m.Payload)
	for _, h := range handlers {
		h(m.Event, payload)
	}
}

// sendPush assigns a fresh ref to p, tracks it and sends it.
func (c *conn) sendPush(p *push) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		p.future.Resolve(socket.Outcome{Status: socket.StatusTimeout})
		return
	}
	if p.ref != "" {
		delete(c.pending, p.ref)
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	ref := c.nextRefLocked()
	p.ref = ref
	if p.event == EventJoin {
		p.ch.joinRef = ref
	}
	c.pending[ref] = p
	p.timer = time.AfterFunc(p.timeout, func() { c.expire(p, ref) })
	msg := Message{JoinRef: p.ch.joinRef, Ref: ref, Topic: p.ch.topic, Event: p.event, Payload: encodePayload(p.payload)}
	c.mu.Unlock()
	c.send(msg)
}

func (c *conn) expire(p *push, ref string) {
	c.mu.Lock()
	if c.pending[ref] != p {
		c.mu.Unlock()
		return
	}
	delete(c.pending, ref)
	p.ch.settleLocked(p, socket.StatusTimeout)
	c.mu.Unlock()
	log.WithFields(log.Fields{"topic": p.ch.topic, "event": p.event, "ref": ref}).Warn("push timeout")
	p.future.Resolve(socket.Outcome{Status: socket.StatusTimeout})
}

func (c *conn) rejoin(ch *channel) {
	c.mu.Lock()
	if ch.state != stateErrored || c.ws == nil || c.closed || ch.joinPush == nil {
		c.mu.Unlock()
		return
	}
	ch.state = stateJoining
	p := ch.joinPush
	c.mu.Unlock()
	log.WithField("topic", ch.topic).Info("rejoin channel")
	c.sendPush(p)
}
