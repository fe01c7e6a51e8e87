package netplay

import (
	"encoding/binary"
	"fmt"
)

// Command tags the Netplay wire header (spec.md §4.3.5).
type Command uint8

const (
	CmdInput Command = iota + 1
	CmdStateHdr
	CmdStateData
	CmdStateAck
	CmdReady
	CmdDisconnect
	CmdPause
	CmdResume
	CmdKeepalive
)

func (c Command) String() string {
	switch c {
	case CmdInput:
		return "INPUT"
	case CmdStateHdr:
		return "STATE_HDR"
	case CmdStateData:
		return "STATE_DATA"
	case CmdStateAck:
		return "STATE_ACK"
	case CmdReady:
		return "READY"
	case CmdDisconnect:
		return "DISCONNECT"
	case CmdPause:
		return "PAUSE"
	case CmdResume:
		return "RESUME"
	case CmdKeepalive:
		return "KEEPALIVE"
	default:
		return fmt.Sprintf("CMD(%d)", uint8(c))
	}
}

// HeaderSize is the fixed 7-byte Netplay header: cmd(1) + frame(4) + size(2)
// (spec.md §3.2).
const HeaderSize = 7

// MaxPacketSize rejects any packet whose declared payload exceeds this, per
// spec.md §4.3.7.
const MaxPacketSize = 4096

// Packet is one decoded Netplay wire message.
type Packet struct {
	Cmd     Command
	Frame   uint32
	Payload []byte
}

// Encode serializes p into its wire form.
func (p Packet) Encode() []byte {
	buf := make([]byte, HeaderSize+len(p.Payload))
	buf[0] = byte(p.Cmd)
	binary.BigEndian.PutUint32(buf[1:5], p.Frame)
	binary.BigEndian.PutUint16(buf[5:7], uint16(len(p.Payload)))
	copy(buf[HeaderSize:], p.Payload)
	return buf
}

// DecodeHeader parses the fixed header portion of buf, returning the
// command, frame number, and declared payload size.
func DecodeHeader(buf []byte) (cmd Command, frame uint32, size uint16, err error) {
	if len(buf) < HeaderSize {
		return 0, 0, 0, ErrShortHeader
	}
	cmd = Command(buf[0])
	frame = binary.BigEndian.Uint32(buf[1:5])
	size = binary.BigEndian.Uint16(buf[5:7])
	if size > MaxPacketSize {
		return 0, 0, 0, ErrMalformedPacket
	}
	return cmd, frame, size, nil
}

// EncodeInput builds an INPUT packet carrying a 16-bit player input mask.
func EncodeInput(frame uint32, input uint16) []byte {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, input)
	return Packet{Cmd: CmdInput, Frame: frame, Payload: payload}.Encode()
}

// DecodeInput extracts the 16-bit input mask from an INPUT packet's payload.
func DecodeInput(payload []byte) (uint16, error) {
	if len(payload) != 2 {
		return 0, ErrMalformedPacket
	}
	return binary.BigEndian.Uint16(payload), nil
}

// EncodeStateHdr builds a STATE_HDR packet announcing a savestate transfer
// of size bytes.
func EncodeStateHdr(size uint32) []byte {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, size)
	return Packet{Cmd: CmdStateHdr, Payload: payload}.Encode()
}

// DecodeStateHdrSize extracts the announced size from a STATE_HDR payload.
func DecodeStateHdrSize(payload []byte) (uint32, error) {
	if len(payload) != 4 {
		return 0, ErrMalformedPacket
	}
	return binary.BigEndian.Uint32(payload), nil
}

// StateChunkSize bounds savestate transfer writes (spec.md §4.3.6).
const StateChunkSize = 4096
