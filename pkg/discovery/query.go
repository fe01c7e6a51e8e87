package discovery

import (
	"fmt"
	"net"
	"time"

	"github.com/nextui-games/linkrt/internal/errx"
	"github.com/nextui-games/linkrt/pkg/netcommon"
)

// queryTimeout and queryAttempts implement spec.md §4.2's GBA Link hotspot
// unicast query: 500ms send/receive timeout, retried up to three times.
const (
	queryTimeout  = 500 * time.Millisecond
	queryAttempts = 3
)

// QueryHost sends a unicast DISCOVERY_QUERY to hostIP and waits for a
// response, used when a GBA Link client has joined a hotspot whose
// broadcast filtering hides the host's beacons. transport.QueryMagic must
// be non-zero (only GBA Link supports this).
func QueryHost(transport Transport, hostIP string, local Fields) (netcommon.HostEntry, error) {
	if transport.QueryMagic == 0 {
		return netcommon.HostEntry{}, fmt.Errorf("discovery: %s has no unicast query", transport.Name)
	}

	addr := &net.UDPAddr{IP: net.ParseIP(hostIP), Port: transport.DiscoveryPort}
	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return netcommon.HostEntry{}, errx.Wrap(ErrQueryTimeout, err)
	}
	defer conn.Close()

	pkt := netcommon.DiscoveryPacket{
		Magic:           transport.QueryMagic,
		ProtocolVersion: transport.ProtocolVersion,
		GameCRC:         local.GameCRC,
		TCPPort:         local.TCPPort,
		GameName:        local.GameName,
		LinkMode:        local.LinkMode,
	}
	wire := pkt.Encode()
	buf := make([]byte, netcommon.DiscoveryPacketSize)

	var lastErr error
	for attempt := 0; attempt < queryAttempts; attempt++ {
		if _, err := conn.Write(wire); err != nil {
			lastErr = err
			continue
		}
		if err := conn.SetReadDeadline(time.Now().Add(queryTimeout)); err != nil {
			lastErr = err
			continue
		}
		n, err := conn.Read(buf)
		if err != nil {
			lastErr = err
			continue
		}
		resp, err := netcommon.DecodeDiscoveryPacket(buf[:n])
		if err != nil || resp.Magic != transport.ResponseMagic {
			lastErr = fmt.Errorf("discovery: unexpected response from %s", hostIP)
			continue
		}
		return netcommon.HostEntry{
			IP:       hostIP,
			GameCRC:  resp.GameCRC,
			TCPPort:  resp.TCPPort,
			GameName: resp.GameName,
			LinkMode: resp.LinkMode,
		}, nil
	}
	return netcommon.HostEntry{}, errx.Wrap(ErrQueryTimeout, lastErr)
}
