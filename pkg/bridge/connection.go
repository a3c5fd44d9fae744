package bridge

import (
	"context"
	"fmt"

	log "github.com/Goden-Gun/channel-bridge/pkg/logger"
	"github.com/Goden-Gun/channel-bridge/pkg/socket"
)

// connManager owns the bridge's current connection. It is only touched from
// the event loop.
type connManager struct {
	transport     socket.Transport
	closeReplaced bool

	current  socket.Conn
	endpoint string
	opened   []socket.Conn
}

func (m *connManager) connect(ctx context.Context, endpoint string, params socket.Payload) error {
	if endpoint == "" {
		return ErrEndpointRequired
	}
	log.WithFields(log.Fields{"endpoint": endpoint, "params": len(params)}).Info("connect socket")

	conn, err := m.transport.Open(ctx, endpoint, params)
	if err != nil {
		return fmt.Errorf("open socket %s: %w", endpoint, err)
	}
	if m.current != nil && m.closeReplaced {
		if cerr := m.current.Close(); cerr != nil {
			log.WithError(cerr).WithField("endpoint", m.endpoint).Warn("close replaced socket")
		}
	}
	m.current = conn
	m.endpoint = endpoint
	m.opened = append(m.opened, conn)
	return nil
}

func (m *connManager) require() (socket.Conn, error) {
	if m.current == nil {
		return nil, ErrNotConnected
	}
	return m.current, nil
}

// closeAll closes every connection opened through this manager.
func (m *connManager) closeAll() {
	for _, c := range m.opened {
		_ = c.Close()
	}
	m.opened = nil
	m.current = nil
}
