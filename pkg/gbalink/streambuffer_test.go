package gbalink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamBuffer_ParseOneWaitsForFullPacket(t *testing.T) {
	var b streamBuffer
	full := Packet{Cmd: CmdSIOData, ClientID: ClientHost, Payload: []byte("hello")}.Encode()

	b.appendFrom(full[:3])
	_, ok, err := b.parseOne()
	require.NoError(t, err)
	assert.False(t, ok)

	b.appendFrom(full[3:])
	pkt, ok, err := b.parseOne()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, CmdSIOData, pkt.Cmd)
	assert.Equal(t, ClientHost, pkt.ClientID)
	assert.Equal(t, []byte("hello"), pkt.Payload)
}

func TestStreamBuffer_ParseOneHandlesMultiplePackets(t *testing.T) {
	var b streamBuffer
	p1 := Packet{Cmd: CmdSIOData, ClientID: ClientHost, Payload: []byte("one")}.Encode()
	p2 := Packet{Cmd: CmdHeartbeat, ClientID: ClientHost}.Encode()
	b.appendFrom(append(p1, p2...))

	pkt, ok, err := b.parseOne()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("one"), pkt.Payload)

	pkt, ok, err = b.parseOne()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, CmdHeartbeat, pkt.Cmd)

	_, ok, err = b.parseOne()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStreamBuffer_OversizeHeaderResetsAndErrors(t *testing.T) {
	var b streamBuffer
	hdr := make([]byte, HeaderSize)
	hdr[0] = byte(CmdSIOData)
	hdr[1] = 0xFF // size = 0xFF10, far beyond MaxPayloadSize
	hdr[2] = 0x10
	b.appendFrom(hdr)

	_, ok, err := b.parseOne()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrProtocolError)
	assert.Equal(t, 0, b.available())
}

func TestStreamBuffer_CompactsWhenTailIsShort(t *testing.T) {
	var b streamBuffer
	// simulate a buffer where most of it has already been consumed but
	// an unparsed tail remains, and free tail space has dropped below
	// compactThreshold: maybeCompact should slide the unparsed bytes
	// down to offset 0.
	b.readIdx = len(b.data)/2 + 100
	b.writeIdx = len(b.data) - compactThreshold + 1
	copy(b.data[b.readIdx:b.writeIdx], []byte{0xAA, 0xBB, 0xCC})

	unparsed := b.available()
	b.maybeCompact()

	assert.Equal(t, 0, b.readIdx)
	assert.Equal(t, unparsed, b.writeIdx)
	assert.Equal(t, byte(0xAA), b.data[0])
}

func TestStreamBuffer_ResetDiscardsBufferedData(t *testing.T) {
	var b streamBuffer
	b.appendFrom([]byte{1, 2, 3})
	require.Equal(t, 3, b.available())
	b.reset()
	assert.Equal(t, 0, b.available())
}
