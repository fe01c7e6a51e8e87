package netcommon

import (
	"fmt"
	"net"
	"os"

	"github.com/nextui-games/linkrt/internal/errx"
	"golang.org/x/sys/unix"
)

// ListenBacklog is the fixed backlog depth for a transport's listen socket.
// The runtime only ever expects a single peer, so a deep backlog would only
// mask a client trying to connect to an already-paired host.
const ListenBacklog = 1

// NewListenSocket creates a streaming IPv4 socket, enables address reuse,
// binds 0.0.0.0:port and marks it listening with ListenBacklog. On any
// failure the socket is closed and a wrapped error is returned.
func NewListenSocket(port int) (net.Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errx.Wrap(ErrListenFailed, err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, errx.Wrap(ErrListenFailed, err)
	}

	addr := unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, errx.Wrap(ErrListenFailed, fmt.Errorf("bind 0.0.0.0:%d: %w", port, err))
	}

	if err := unix.Listen(fd, ListenBacklog); err != nil {
		unix.Close(fd)
		return nil, errx.Wrap(ErrListenFailed, err)
	}

	f := os.NewFile(uintptr(fd), "nextui-link-listen")
	defer f.Close()

	l, err := net.FileListener(f)
	if err != nil {
		return nil, errx.Wrap(ErrListenFailed, err)
	}
	return l, nil
}

// NewDiscoveryListenSocket creates a datagram IPv4 socket bound to
// 0.0.0.0:port with address reuse enabled. The returned conn is used with
// deadlines for non-blocking polling rather than O_NONBLOCK, matching how
// every other read in this package is driven.
func NewDiscoveryListenSocket(port int) (*net.UDPConn, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, errx.Wrap(ErrDiscoverySocket, err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, errx.Wrap(ErrDiscoverySocket, err)
	}

	addr := unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, errx.Wrap(ErrDiscoverySocket, fmt.Errorf("bind 0.0.0.0:%d: %w", port, err))
	}

	return wrapUDP(fd, "nextui-link-discovery")
}

// NewBroadcastUDPSocket creates a datagram IPv4 socket with SO_BROADCAST
// set, bound to an ephemeral local port, suitable for sending to
// 255.255.255.255.
func NewBroadcastUDPSocket() (*net.UDPConn, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, errx.Wrap(ErrBroadcastSocket, err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BROADCAST, 1); err != nil {
		unix.Close(fd)
		return nil, errx.Wrap(ErrBroadcastSocket, err)
	}

	addr := unix.SockaddrInet4{Port: 0}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, errx.Wrap(ErrBroadcastSocket, err)
	}

	return wrapUDP(fd, "nextui-link-broadcast")
}

func wrapUDP(fd int, name string) (*net.UDPConn, error) {
	f := os.NewFile(uintptr(fd), name)
	defer f.Close()

	pc, err := net.FilePacketConn(f)
	if err != nil {
		return nil, errx.Wrap(ErrDiscoverySocket, err)
	}
	udp, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, ErrDiscoverySocket
	}
	return udp, nil
}

// SocketError returns the pending SO_ERROR on a TCP connection's underlying
// file descriptor without consuming it from a read, used by the GBA Link
// poll loop (spec §4.4.4) to notice a reset that hasn't yet surfaced through
// Read/Write.
func SocketError(conn *net.TCPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return errx.Wrap(ErrSocketError, err)
	}

	var sockErr error
	var soErr int
	ctrlErr := raw.Control(func(fd uintptr) {
		soErr, sockErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ERROR)
	})
	if ctrlErr != nil {
		return errx.Wrap(ErrSocketError, ctrlErr)
	}
	if sockErr != nil {
		return errx.Wrap(ErrSocketError, sockErr)
	}
	if soErr != 0 {
		return errx.Wrap(ErrSocketError, unix.Errno(soErr))
	}
	return nil
}
