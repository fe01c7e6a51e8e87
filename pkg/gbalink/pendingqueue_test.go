package gbalink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingQueue_FIFOOrder(t *testing.T) {
	var q pendingQueue
	require.True(t, q.push(ClientHost, []byte("a")))
	require.True(t, q.push(ClientPeer, []byte("b")))
	require.True(t, q.push(ClientHost, []byte("c")))

	id, payload, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, ClientHost, id)
	assert.Equal(t, []byte("a"), payload)

	id, payload, ok = q.pop()
	require.True(t, ok)
	assert.Equal(t, ClientPeer, id)
	assert.Equal(t, []byte("b"), payload)

	id, payload, ok = q.pop()
	require.True(t, ok)
	assert.Equal(t, ClientHost, id)
	assert.Equal(t, []byte("c"), payload)

	_, _, ok = q.pop()
	assert.False(t, ok)
}

func TestPendingQueue_OverflowDropsNewestAndCounts(t *testing.T) {
	var q pendingQueue
	for i := 0; i < PendingQueueSlots; i++ {
		require.True(t, q.push(ClientHost, []byte{byte(i)}))
	}
	assert.Equal(t, PendingQueueSlots, q.len())

	ok := q.push(ClientHost, []byte("overflow"))
	assert.False(t, ok)
	assert.Equal(t, uint64(1), q.DroppedTotal)
	assert.Equal(t, PendingQueueSlots, q.len())

	// the oldest entry must still be intact; the dropped packet never
	// displaced it.
	_, payload, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, []byte{0}, payload)
}

func TestPendingQueue_WrapsAroundCircularly(t *testing.T) {
	var q pendingQueue
	for i := 0; i < PendingQueueSlots; i++ {
		require.True(t, q.push(ClientHost, []byte{byte(i)}))
	}
	for i := 0; i < PendingQueueSlots/2; i++ {
		_, _, ok := q.pop()
		require.True(t, ok)
	}
	for i := 0; i < PendingQueueSlots/2; i++ {
		require.True(t, q.push(ClientPeer, []byte{byte(100 + i)}))
	}
	assert.Equal(t, PendingQueueSlots, q.len())

	_, payload, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, []byte{byte(PendingQueueSlots / 2)}, payload)
}
