package bridge

import (
	"fmt"

	"github.com/Goden-Gun/channel-bridge/pkg/socket"
)

type channelEntry struct {
	handle  Handle
	topic   string
	payload socket.Payload
	conn    socket.Conn
	ch      socket.Channel
}

// registry is the channel arena. Handles are validated on every command.
type registry struct {
	next    Handle
	entries map[Handle]*channelEntry
}

func newRegistry() *registry {
	return &registry{entries: make(map[Handle]*channelEntry)}
}

func (r *registry) add(conn socket.Conn, topic string, payload socket.Payload) *channelEntry {
	r.next++
	e := &channelEntry{
		handle:  r.next,
		topic:   topic,
		payload: payload,
		conn:    conn,
		ch:      conn.Channel(topic, payload),
	}
	r.entries[e.handle] = e
	return e
}

func (r *registry) get(h Handle) (*channelEntry, error) {
	e, ok := r.entries[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannelHandle, h)
	}
	return e, nil
}

func (r *registry) release(h Handle) {
	delete(r.entries, h)
}

func (r *registry) len() int {
	return len(r.entries)
}
