package netplay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameBuffer_ReadyOnlyWhenBothPresent(t *testing.T) {
	var buf frameBuffer
	assert.False(t, buf.ready(5))

	buf.write(5, true, 0x0001)
	assert.False(t, buf.ready(5))

	buf.write(5, false, 0x0002)
	assert.True(t, buf.ready(5))

	p1, p2 := buf.read(5)
	assert.Equal(t, uint16(0x0001), p1)
	assert.Equal(t, uint16(0x0002), p2)
}

func TestFrameBuffer_AliasedSlotReset(t *testing.T) {
	var buf frameBuffer
	buf.write(1, true, 0xAAAA)
	buf.write(1, false, 0xBBBB)
	assert.True(t, buf.ready(1))

	// frame 1+SlotCount aliases the same slot; it must not appear ready
	// until both flags are set for the new frame number.
	aliased := uint32(1 + SlotCount)
	assert.False(t, buf.ready(aliased))
	buf.write(aliased, true, 0x1111)
	assert.False(t, buf.ready(aliased))
	assert.False(t, buf.ready(1)) // old frame's slot was reclaimed
}

func TestFrameBuffer_SeedZero(t *testing.T) {
	var buf frameBuffer
	buf.seedZero(InputLatency)
	for f := uint32(0); f < InputLatency; f++ {
		assert.True(t, buf.ready(f))
		p1, p2 := buf.read(f)
		assert.Zero(t, p1)
		assert.Zero(t, p2)
	}
}
