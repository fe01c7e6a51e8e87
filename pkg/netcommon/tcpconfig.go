package netcommon

import (
	"net"
	"time"

	"github.com/nextui-games/linkrt/internal/errx"
)

// TCPConfig bundles the per-connection socket tuning described in spec.md
// §4.1: buffer sizes, an optional recv timeout, and keepalive.
type TCPConfig struct {
	BufferSize     int           // applied to both send and receive buffers
	RecvTimeout    time.Duration // 0 disables read deadlines
	EnableKeepalive bool
}

// DefaultTCPConfig returns the spec's documented defaults: 64 KiB buffers,
// no timeout, no keepalive.
func DefaultTCPConfig() TCPConfig {
	return TCPConfig{BufferSize: 64 * 1024}
}

// ConfigureTCPSocket applies cfg to conn: TCP_NODELAY is always enabled,
// send/recv buffers are sized per cfg.BufferSize, and keepalive is toggled
// per cfg.EnableKeepalive. cfg.RecvTimeout is not applied here — Go has no
// persistent SO_RCVTIMEO equivalent exposed on net.TCPConn, so callers must
// re-arm a read deadline via ApplyRecvTimeout before every blocking read.
func ConfigureTCPSocket(conn *net.TCPConn, cfg TCPConfig) error {
	if err := conn.SetNoDelay(true); err != nil {
		return errx.Wrap(ErrSocketOptionFailed, err)
	}
	if cfg.BufferSize > 0 {
		if err := conn.SetReadBuffer(cfg.BufferSize); err != nil {
			return errx.Wrap(ErrSocketOptionFailed, err)
		}
		if err := conn.SetWriteBuffer(cfg.BufferSize); err != nil {
			return errx.Wrap(ErrSocketOptionFailed, err)
		}
	}
	if err := conn.SetKeepAlive(cfg.EnableKeepalive); err != nil {
		return errx.Wrap(ErrSocketOptionFailed, err)
	}
	return nil
}

// ApplyRecvTimeout arms (or clears, when cfg.RecvTimeout == 0) a read
// deadline on conn for the next blocking read, the Go equivalent of
// SO_RCVTIMEO.
func ApplyRecvTimeout(conn *net.TCPConn, cfg TCPConfig) error {
	if cfg.RecvTimeout <= 0 {
		return conn.SetReadDeadline(time.Time{})
	}
	return conn.SetReadDeadline(time.Now().Add(cfg.RecvTimeout))
}

// GBALinkTCPConfig is the tuning spec.md §4.4.8 calls for: smaller 32 KiB
// buffers (faster bufferbloat feedback on lossy WiFi) and a 1ms recv
// timeout so the core gets prompt control without busy-waiting.
func GBALinkTCPConfig() TCPConfig {
	return TCPConfig{
		BufferSize:      32 * 1024,
		RecvTimeout:     time.Millisecond,
		EnableKeepalive: true,
	}
}
