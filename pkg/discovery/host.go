package discovery

import (
	"net"
	"time"

	"github.com/nextui-games/linkrt/pkg/netcommon"
)

// Host broadcasts DISCOVERY_RESP beacons while the owning transport's phase
// is Waiting, rate-limited by a BroadcastTimer (spec.md §4.2). For
// transports with a non-zero QueryMagic (GBA Link) it additionally binds
// the discovery port for reception so that a hotspot client whose broadcast
// is filtered can unicast a query and get an answer back.
type Host struct {
	transport Transport
	broadcast *net.UDPConn
	query     *net.UDPConn // nil unless transport.QueryMagic != 0
	timer     *netcommon.BroadcastTimer
	fields    FieldsFunc
	closed    bool
}

// NewHost opens the sockets a host side of discovery needs for transport.
func NewHost(transport Transport, fields FieldsFunc) (*Host, error) {
	broadcast, err := netcommon.NewBroadcastUDPSocket()
	if err != nil {
		return nil, err
	}

	var query *net.UDPConn
	if transport.QueryMagic != 0 {
		query, err = netcommon.NewDiscoveryListenSocket(transport.DiscoveryPort)
		if err != nil {
			broadcast.Close()
			return nil, err
		}
	}

	return &Host{
		transport: transport,
		broadcast: broadcast,
		query:     query,
		timer:     netcommon.NewBroadcastTimer(netcommon.DefaultBroadcastInterval),
		fields:    fields,
	}, nil
}

// Poll should be called once per tick while the transport is Waiting. It
// sends a beacon when the broadcast timer allows it and answers any pending
// unicast queries.
func (h *Host) Poll(now time.Time) error {
	if h.closed {
		return ErrHostClosed
	}

	if h.timer.ShouldBroadcast(now) {
		f := h.fields()
		pkt := netcommon.DiscoveryPacket{
			Magic:           h.transport.ResponseMagic,
			ProtocolVersion: h.transport.ProtocolVersion,
			GameCRC:         f.GameCRC,
			TCPPort:         f.TCPPort,
			GameName:        f.GameName,
			LinkMode:        f.LinkMode,
		}
		// Discovery is advisory (spec.md §4.2 failure policy): a send
		// failure here must not abort the waiting loop.
		_ = netcommon.SendDiscoveryBroadcast(h.broadcast, h.transport.DiscoveryPort, pkt)
	}

	if h.query != nil {
		h.answerQueries()
	}
	return nil
}

func (h *Host) answerQueries() {
	buf := make([]byte, netcommon.DiscoveryPacketSize)
	for {
		if err := h.query.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
			return
		}
		n, addr, err := h.query.ReadFromUDP(buf)
		if err != nil {
			return
		}

		pkt, err := netcommon.DecodeDiscoveryPacket(buf[:n])
		if err != nil || pkt.Magic != h.transport.QueryMagic {
			continue
		}

		f := h.fields()
		resp := netcommon.DiscoveryPacket{
			Magic:           h.transport.ResponseMagic,
			ProtocolVersion: h.transport.ProtocolVersion,
			GameCRC:         f.GameCRC,
			TCPPort:         f.TCPPort,
			GameName:        f.GameName,
			LinkMode:        f.LinkMode,
		}
		_, _ = h.query.WriteToUDP(resp.Encode(), addr)
	}
}

// RestartBroadcast rearms the broadcast timer as if it had just fired,
// called when a host returns to Waiting after a peer departs (spec.md
// §8.4 scenario 6) so the next beacon goes out a full interval later
// rather than immediately.
func (h *Host) RestartBroadcast(now time.Time) {
	h.timer.Reset(now)
}

// Close releases the host's discovery sockets.
func (h *Host) Close() error {
	h.closed = true
	var firstErr error
	if err := h.broadcast.Close(); err != nil {
		firstErr = err
	}
	if h.query != nil {
		if err := h.query.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
