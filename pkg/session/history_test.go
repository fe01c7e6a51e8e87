package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_RecordAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := OpenHistory(path)
	require.NoError(t, err)
	defer h.Close()

	now := time.Now()
	require.NoError(t, h.Record(Entry{
		SessionID: "a", Transport: "netplay", Role: "host",
		PeerStatus: "Playing", Reason: "peer disconnected",
		StartedAt: now.Add(-time.Minute), EndedAt: now,
	}))
	require.NoError(t, h.Record(Entry{
		SessionID: "b", Transport: "gbalink", Role: "client",
		PeerStatus: "Connected", Reason: "user canceled",
		StartedAt: now.Add(-2 * time.Minute), EndedAt: now.Add(-time.Second),
	}))

	entries, err := h.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].SessionID) // most recent ended_at first
	assert.Equal(t, "b", entries[1].SessionID)
}

func TestHistory_RecentRespectsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := OpenHistory(path)
	require.NoError(t, err)
	defer h.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Record(Entry{
			SessionID: string(rune('a' + i)), Transport: "netplay", Role: "host",
			StartedAt: time.Now(), EndedAt: time.Now(),
		}))
	}

	entries, err := h.Recent(2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
