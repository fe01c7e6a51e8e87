// Package gbalink implements the framed packet bridge for the GBA Link/RFU
// wireless-adapter protocol (spec.md §4.4): the transport delivers every
// packet the core hands it, in order, with bounded latency, but otherwise
// stays out of the RFU protocol's content and timing.
package gbalink

import (
	"encoding/binary"
	"fmt"
)

// Command tags the GBA Link wire header (spec.md §4.4.5).
type Command uint8

const (
	CmdSIOData Command = iota + 1
	CmdReady
	CmdHeartbeat
	CmdDisconnect
	CmdPing
	CmdPong
)

func (c Command) String() string {
	switch c {
	case CmdSIOData:
		return "SIO_DATA"
	case CmdReady:
		return "READY"
	case CmdHeartbeat:
		return "HEARTBEAT"
	case CmdDisconnect:
		return "DISCONNECT"
	case CmdPing:
		return "PING"
	case CmdPong:
		return "PONG"
	default:
		return fmt.Sprintf("CMD(%d)", uint8(c))
	}
}

// HeaderSize is the fixed 5-byte GBA Link header: cmd(1) + size(2) +
// client_id(2) (spec.md §3.2).
const HeaderSize = 5

// MaxPayloadSize is the hard 2KiB payload cap (spec.md §3.4, §4.4.7).
const MaxPayloadSize = 2048

// ClientID names the source of a packet: 0 is always the host, 1 the
// (single) client.
type ClientID uint16

const (
	ClientHost   ClientID = 0
	ClientPeer   ClientID = 1
)

// Packet is one decoded GBA Link wire message.
type Packet struct {
	Cmd      Command
	ClientID ClientID
	Payload  []byte
}

// Encode serializes p into its wire form.
func (p Packet) Encode() []byte {
	buf := make([]byte, HeaderSize+len(p.Payload))
	buf[0] = byte(p.Cmd)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(p.Payload)))
	binary.BigEndian.PutUint16(buf[3:5], uint16(p.ClientID))
	copy(buf[HeaderSize:], p.Payload)
	return buf
}

// DecodeHeader parses the fixed header, rejecting any declared size beyond
// MaxPayloadSize as a protocol error (spec.md §4.4.7 step 3).
func DecodeHeader(buf []byte) (cmd Command, size uint16, clientID ClientID, err error) {
	if len(buf) < HeaderSize {
		return 0, 0, 0, ErrShortHeader
	}
	cmd = Command(buf[0])
	size = binary.BigEndian.Uint16(buf[1:3])
	clientID = ClientID(binary.BigEndian.Uint16(buf[3:5]))
	if size > MaxPayloadSize {
		return 0, 0, 0, ErrProtocolError
	}
	return cmd, size, clientID, nil
}

// EncodeReady builds a READY packet; linkMode is only meaningful on the
// host-to-client direction (spec.md §4.4.3) and is NUL-terminated on the
// wire.
func EncodeReady(id ClientID, linkMode string) []byte {
	var payload []byte
	if linkMode != "" {
		payload = append([]byte(linkMode), 0)
	}
	return Packet{Cmd: CmdReady, ClientID: id, Payload: payload}.Encode()
}

// DecodeReadyLinkMode extracts the NUL-terminated link-mode string from a
// READY payload, returning "" if the payload is empty.
func DecodeReadyLinkMode(payload []byte) string {
	for i, b := range payload {
		if b == 0 {
			return string(payload[:i])
		}
	}
	return string(payload)
}
