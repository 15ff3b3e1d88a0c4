package scanning

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"
)

// Connector abstracts TCP connection establishment so strategies can be
// tested without touching the network.
type Connector interface {
	// Connect dials target:port within the timeout. A nonzero sourcePort
	// requests a specific local port; implementations fall back to an
	// ephemeral port when the bind fails.
	Connect(ctx context.Context, target string, port, sourcePort int, timeout time.Duration) (net.Conn, error)
}

// TCPConnector dials real TCP connections.
type TCPConnector struct{}

// NewTCPConnector creates a connector backed by the operating system's TCP
// stack.
func NewTCPConnector() *TCPConnector {
	return &TCPConnector{}
}

// Connect implements Connector. When a source port is requested and binding
// it fails, the dial is retried on an ephemeral port; source port selection
// is best effort and never fails a probe on its own.
func (c *TCPConnector) Connect(ctx context.Context, target string, port, sourcePort int, timeout time.Duration) (net.Conn, error) {
	addr := net.JoinHostPort(target, strconv.Itoa(port))

	if sourcePort > 0 {
		dialer := &net.Dialer{
			Timeout:   timeout,
			LocalAddr: &net.TCPAddr{Port: sourcePort},
		}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		if !isBindError(err) {
			return nil, err
		}
	}

	dialer := &net.Dialer{Timeout: timeout}
	return dialer.DialContext(ctx, "tcp", addr)
}

// isBindError reports whether a dial failure happened while binding the local
// address, before any packet reached the target. Only those failures warrant
// the ephemeral-port retry; remote failures must surface unchanged so
// classification stays accurate.
func isBindError(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE) ||
		errors.Is(err, syscall.EADDRNOTAVAIL) ||
		errors.Is(err, syscall.EACCES)
}
