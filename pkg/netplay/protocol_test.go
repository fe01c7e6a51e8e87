package netplay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacket_EncodeDecodeHeader(t *testing.T) {
	wire := EncodeInput(42, 0xBEEF)
	cmd, frame, size, err := DecodeHeader(wire)
	require.NoError(t, err)
	assert.Equal(t, CmdInput, cmd)
	assert.Equal(t, uint32(42), frame)
	assert.Equal(t, uint16(2), size)

	input, err := DecodeInput(wire[HeaderSize:])
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), input)
}

func TestDecodeHeader_ShortBuffer(t *testing.T) {
	_, _, _, err := DecodeHeader([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrShortHeader)
}

func TestDecodeHeader_OversizeRejected(t *testing.T) {
	wire := Packet{Cmd: CmdStateData, Payload: make([]byte, 10)}.Encode()
	// Corrupt the declared size to exceed MaxPacketSize.
	wire[5] = 0xFF
	wire[6] = 0xFF
	_, _, _, err := DecodeHeader(wire)
	assert.ErrorIs(t, err, ErrMalformedPacket)
}

func TestStateHdr_RoundTrip(t *testing.T) {
	wire := EncodeStateHdr(123456)
	cmd, _, _, err := DecodeHeader(wire)
	require.NoError(t, err)
	assert.Equal(t, CmdStateHdr, cmd)

	size, err := DecodeStateHdrSize(wire[HeaderSize:])
	require.NoError(t, err)
	assert.Equal(t, uint32(123456), size)
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "INPUT", CmdInput.String())
	assert.Equal(t, "DISCONNECT", CmdDisconnect.String())
}
