package netcommon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// Fixed field widths for the NUL-padded string fields of a discovery
// packet (spec.md §3.2).
const (
	DiscoveryGameNameLen = 64
	DiscoveryLinkModeLen = 32

	// DiscoveryPacketSize is the encoded wire size: magic(4) + version(4) +
	// crc(4) + port(2) + name(64) + mode(32).
	DiscoveryPacketSize = 4 + 4 + 4 + 2 + DiscoveryGameNameLen + DiscoveryLinkModeLen
)

// DiscoveryPacket is the fixed, big-endian wire payload shared by all three
// transports' discovery protocols. Distinct Magic values per transport
// reject cross-listening.
type DiscoveryPacket struct {
	Magic           uint32
	ProtocolVersion uint32
	GameCRC         uint32
	TCPPort         uint16
	GameName        string
	LinkMode        string
}

// Encode serializes p into its fixed wire layout.
func (p DiscoveryPacket) Encode() []byte {
	buf := make([]byte, DiscoveryPacketSize)
	binary.BigEndian.PutUint32(buf[0:4], p.Magic)
	binary.BigEndian.PutUint32(buf[4:8], p.ProtocolVersion)
	binary.BigEndian.PutUint32(buf[8:12], p.GameCRC)
	binary.BigEndian.PutUint16(buf[12:14], p.TCPPort)
	copyPadded(buf[14:14+DiscoveryGameNameLen], p.GameName)
	copyPadded(buf[14+DiscoveryGameNameLen:], p.LinkMode)
	return buf
}

// DecodeDiscoveryPacket parses the fixed wire layout. It returns an error
// only if buf is shorter than DiscoveryPacketSize; a magic mismatch is left
// to the caller to check, since the whole point of Magic is to let callers
// reject foreign traffic without treating it as malformed.
func DecodeDiscoveryPacket(buf []byte) (DiscoveryPacket, error) {
	if len(buf) < DiscoveryPacketSize {
		return DiscoveryPacket{}, fmt.Errorf("netcommon: discovery packet too short (%d < %d)", len(buf), DiscoveryPacketSize)
	}
	return DiscoveryPacket{
		Magic:           binary.BigEndian.Uint32(buf[0:4]),
		ProtocolVersion: binary.BigEndian.Uint32(buf[4:8]),
		GameCRC:         binary.BigEndian.Uint32(buf[8:12]),
		TCPPort:         binary.BigEndian.Uint16(buf[12:14]),
		GameName:        unpad(buf[14 : 14+DiscoveryGameNameLen]),
		LinkMode:        unpad(buf[14+DiscoveryGameNameLen:]),
	}, nil
}

func copyPadded(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	n := copy(dst, s)
	_ = n
}

func unpad(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// HostEntry is one discovered peer, the caller-provided host list record
// spec.md §4.1 describes.
type HostEntry struct {
	IP       string
	GameCRC  uint32
	TCPPort  uint16
	GameName string
	LinkMode string
}

// SendDiscoveryBroadcast fills a discovery packet with the supplied fields
// and sends it to 255.255.255.255:discoveryPort on conn.
func SendDiscoveryBroadcast(conn *net.UDPConn, discoveryPort int, pkt DiscoveryPacket) error {
	dst := &net.UDPAddr{IP: net.IPv4bcast, Port: discoveryPort}
	_, err := conn.WriteToUDP(pkt.Encode(), dst)
	return err
}

// ReceiveDiscoveryResponses drains conn without blocking beyond a single
// short poll window, appending any sender not already present in hosts (by
// IP) whose packet magic matches expectedMagic, up to maxHosts entries.
// It returns the (possibly extended) host list.
func ReceiveDiscoveryResponses(conn *net.UDPConn, expectedMagic uint32, hosts []HostEntry, maxHosts int) ([]HostEntry, error) {
	seen := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		seen[h.IP] = true
	}

	buf := make([]byte, DiscoveryPacketSize)
	for len(hosts) < maxHosts {
		if err := conn.SetReadDeadline(time.Now().Add(5 * time.Millisecond)); err != nil {
			return hosts, err
		}
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				break
			}
			return hosts, err
		}

		pkt, err := DecodeDiscoveryPacket(buf[:n])
		if err != nil || pkt.Magic != expectedMagic {
			continue
		}

		ip := addr.IP.String()
		if seen[ip] {
			continue
		}
		seen[ip] = true
		hosts = append(hosts, HostEntry{
			IP:       ip,
			GameCRC:  pkt.GameCRC,
			TCPPort:  pkt.TCPPort,
			GameName: pkt.GameName,
			LinkMode: pkt.LinkMode,
		})
	}
	return hosts, nil
}
