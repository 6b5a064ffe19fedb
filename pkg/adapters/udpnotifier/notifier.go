// Package udpnotifier announces finished recordings with a UDP datagram.
package udpnotifier

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/user/framerec/pkg/ports"
)

// DefaultPort is the port used when the address has none.
const DefaultPort = "4210"

// Notifier sends "SAVED:<path>" to a fixed address.
type Notifier struct {
	addr    string
	timeout time.Duration
	logger  ports.Logger
}

// New creates a Notifier for addr ("host:port" or "host").
func New(addr string, logger ports.Logger) (*Notifier, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, DefaultPort)
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" || port == "" {
		return nil, fmt.Errorf("invalid notify address %q", addr)
	}
	return &Notifier{
		addr:    addr,
		timeout: 2 * time.Second,
		logger:  logger.WithComponent("notify"),
	}, nil
}

// Message returns the datagram payload for path.
func Message(path string) []byte {
	return []byte("SAVED:" + path)
}

// NotifySaved sends one datagram. Delivery is not confirmed.
func (n *Notifier) NotifySaved(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", n.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", n.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}
	if _, err := conn.Write(Message(path)); err != nil {
		return fmt.Errorf("send to %s: %w", n.addr, err)
	}

	n.logger.Debug("Sent notification to %s", n.addr)
	return nil
}

var _ ports.Notifier = (*Notifier)(nil)
