package discovery

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextui-games/linkrt/pkg/netcommon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransport(basePort int) Transport {
	return Transport{
		Name:            "test",
		ResponseMagic:   0x54455354, // 'TEST'
		DiscoveryPort:   basePort,
		TCPPort:         basePort + 1,
		ProtocolVersion: 1,
	}
}

func TestHostScanner_RoundTrip(t *testing.T) {
	transport := testTransport(55936)

	host, err := NewHost(transport, func() Fields {
		return Fields{GameName: "Tetris", GameCRC: 0xC0FFEE, TCPPort: uint16(transport.TCPPort)}
	})
	require.NoError(t, err)
	defer host.Close()

	scanner, err := NewScanner(transport, 0)
	require.NoError(t, err)
	defer scanner.Close()

	require.NoError(t, host.Poll(time.Now()))

	var hosts []netcommon.HostEntry
	for i := 0; i < 20 && len(hosts) == 0; i++ {
		hosts, err = scanner.Scan()
		require.NoError(t, err)
		if len(hosts) == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}

	require.Len(t, hosts, 1)
	assert.Equal(t, uint32(0xC0FFEE), hosts[0].GameCRC)
	assert.Equal(t, "Tetris", hosts[0].GameName)
}

func TestHost_RateLimitsBroadcast(t *testing.T) {
	transport := testTransport(55946)
	host, err := NewHost(transport, func() Fields { return Fields{} })
	require.NoError(t, err)
	defer host.Close()

	now := time.Now()
	require.NoError(t, host.Poll(now))
	// Second poll within the same instant must not re-fire the timer; we
	// can't observe the network directly here, but RestartBroadcast/timer
	// must not panic and Poll must stay cheap (no blocking send attempts).
	require.NoError(t, host.Poll(now))
	host.RestartBroadcast(now)
	require.NoError(t, host.Poll(now))
}

func TestQueryHost_GBALinkOnly(t *testing.T) {
	_, err := QueryHost(testTransport(55956), "127.0.0.1", Fields{})
	require.Error(t, err)
}

func TestQueryHost_RoundTrip(t *testing.T) {
	host, err := NewHost(GBALink, func() Fields {
		return Fields{GameName: "Pokemon", GameCRC: 1, TCPPort: uint16(GBALink.TCPPort), LinkMode: "rfu"}
	})
	require.NoError(t, err)
	defer host.Close()

	// Drive the host's query-answering path directly rather than relying
	// on Poll's internal timing.
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			_ = host.Poll(time.Now())
			time.Sleep(5 * time.Millisecond)
		}
	}()

	entry, err := QueryHost(GBALink, "127.0.0.1", Fields{GameName: "Pokemon", TCPPort: 1})
	require.NoError(t, err)
	assert.Equal(t, "rfu", entry.LinkMode)
}

func TestCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts.cbor")

	entries, err := LoadCache(path)
	require.NoError(t, err)
	assert.Empty(t, entries)

	hosts := []netcommon.HostEntry{{IP: "10.0.0.5", GameName: "Zelda", GameCRC: 7, TCPPort: 55435}}
	entries = MergeSeen(entries, hosts, time.Now(), 0)
	require.NoError(t, SaveCache(path, entries))

	loaded, err := LoadCache(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "10.0.0.5", loaded[0].IP)
	assert.Equal(t, "Zelda", loaded[0].GameName)
}

func TestCache_MissingFileIsEmpty(t *testing.T) {
	entries, err := LoadCache(filepath.Join(t.TempDir(), "missing.cbor"))
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestCache_TrimsToMaxEntries(t *testing.T) {
	var cache []CacheEntry
	now := time.Now()
	hosts := make([]netcommon.HostEntry, 5)
	for i := range hosts {
		hosts[i] = netcommon.HostEntry{IP: string(rune('a' + i))}
	}
	cache = MergeSeen(cache, hosts, now, 3)
	assert.Len(t, cache, 3)
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
