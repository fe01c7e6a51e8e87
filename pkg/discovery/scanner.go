package discovery

import (
	"net"

	"github.com/nextui-games/linkrt/pkg/netcommon"
)

// DefaultMaxHosts bounds the host list a single scan accumulates, matching
// spec.md §4.1's max_hosts parameter.
const DefaultMaxHosts = 16

// Scanner is the client side of discovery: bind the discovery port, poll
// briefly on each refresh tick, and deduplicate by sender IP (spec.md
// §4.2).
type Scanner struct {
	transport Transport
	conn      *net.UDPConn
	maxHosts  int
	hosts     []netcommon.HostEntry
	closed    bool
}

// NewScanner opens the discovery listen socket for transport's scan side.
func NewScanner(transport Transport, maxHosts int) (*Scanner, error) {
	if maxHosts <= 0 {
		maxHosts = DefaultMaxHosts
	}
	conn, err := netcommon.NewDiscoveryListenSocket(transport.DiscoveryPort)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		transport: transport,
		conn:      conn,
		maxHosts:  maxHosts,
	}, nil
}

// Scan performs one refresh tick, returning the deduplicated host list
// accumulated across all calls so far.
func (s *Scanner) Scan() ([]netcommon.HostEntry, error) {
	if s.closed {
		return nil, ErrScannerClosed
	}
	hosts, err := netcommon.ReceiveDiscoveryResponses(s.conn, s.transport.ResponseMagic, s.hosts, s.maxHosts)
	s.hosts = hosts
	return hosts, err
}

// Reset drops the accumulated host list, e.g. when the UI starts a fresh
// scan.
func (s *Scanner) Reset() {
	s.hosts = nil
}

// Close releases the scanner's socket.
func (s *Scanner) Close() error {
	s.closed = true
	return s.conn.Close()
}
