// Package phoenix implements socket.Transport for Phoenix channel servers
// over gorilla/websocket using the V2 JSON serializer.
package phoenix

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	log "github.com/Goden-Gun/channel-bridge/pkg/logger"
	"github.com/Goden-Gun/channel-bridge/pkg/socket"
)

// DefaultTimeout bounds join and leave pushes and pushes issued without a
// timeout.
const DefaultTimeout = 10 * time.Second

// Options configure every connection opened by a Transport.
type Options struct {
	HeartbeatInterval   time.Duration
	ReconnectBackoff    time.Duration
	MaxReconnectBackoff time.Duration
	// RejoinAfter delays the rejoin of a channel after a join error, a join
	// timeout or phx_error.
	RejoinAfter    time.Duration
	DialTimeout    time.Duration
	WriteTimeout   time.Duration
	DefaultTimeout time.Duration
	Header         http.Header
	Dialer         *websocket.Dialer
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.ReconnectBackoff <= 0 {
		o.ReconnectBackoff = time.Second
	}
	if o.MaxReconnectBackoff <= 0 {
		o.MaxReconnectBackoff = 15 * time.Second
	}
	if o.MaxReconnectBackoff < o.ReconnectBackoff {
		o.MaxReconnectBackoff = o.ReconnectBackoff
	}
	if o.RejoinAfter <= 0 {
		o.RejoinAfter = time.Second
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = DefaultTimeout
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	return o
}

// Transport opens Phoenix socket connections.
type Transport struct {
	opts Options
}

// New returns a transport using opts for every connection.
func New(opts Options) *Transport {
	return &Transport{opts: opts.withDefaults()}
}

// Open starts connecting to endpoint in the background and returns at once.
// Dial failures are logged and retried with backoff until the connection is
// closed. The connection outlives ctx; only its values are kept.
func (t *Transport) Open(ctx context.Context, endpoint string, params socket.Payload) (socket.Conn, error) {
	u, err := EndpointURL(endpoint, params)
	if err != nil {
		return nil, err
	}
	c := newConn(t.opts, u)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.wg.Add(1)
	go c.run(runCtx)
	log.WithField("url", c.logURL).Info("socket opening")
	return c, nil
}
