package netcommon

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateHotspotSSID_Deterministic(t *testing.T) {
	a := GenerateHotspotSSID(HotspotSSIDPrefix, 42)
	b := GenerateHotspotSSID(HotspotSSIDPrefix, 42)
	assert.Equal(t, a, b)
	assert.True(t, len(a) == len(HotspotSSIDPrefix)+4)

	c := GenerateHotspotSSID(HotspotSSIDPrefix, 43)
	assert.NotEqual(t, a, c)
}

func TestGenerateHotspotSSID_AlphabetExcludesConfusables(t *testing.T) {
	ssid := GenerateHotspotSSID(HotspotSSIDPrefix, 7)
	suffix := ssid[len(HotspotSSIDPrefix):]
	for _, c := range suffix {
		assert.NotContains(t, "IO", string(c))
	}
}

func TestBroadcastTimer_RateLimits(t *testing.T) {
	timer := NewBroadcastTimer(500 * time.Millisecond)
	t0 := time.Now()

	assert.True(t, timer.ShouldBroadcast(t0))
	assert.False(t, timer.ShouldBroadcast(t0.Add(100*time.Millisecond)))
	assert.True(t, timer.ShouldBroadcast(t0.Add(600*time.Millisecond)))
}

func TestBroadcastTimer_ResetDelaysNextFire(t *testing.T) {
	timer := NewBroadcastTimer(500 * time.Millisecond)
	t0 := time.Now()
	timer.Reset(t0)
	assert.False(t, timer.ShouldBroadcast(t0.Add(100*time.Millisecond)))
}

func TestDiscoveryPacket_RoundTrip(t *testing.T) {
	pkt := DiscoveryPacket{
		Magic:           0x4E584452, // 'NXDR'
		ProtocolVersion: 2,
		GameCRC:         0xDEADBEEF,
		TCPPort:         55435,
		GameName:        "Super Mario Land",
		LinkMode:        "mul_poke",
	}

	encoded := pkt.Encode()
	require.Len(t, encoded, DiscoveryPacketSize)

	decoded, err := DecodeDiscoveryPacket(encoded)
	require.NoError(t, err)
	assert.Equal(t, pkt.Magic, decoded.Magic)
	assert.Equal(t, pkt.ProtocolVersion, decoded.ProtocolVersion)
	assert.Equal(t, pkt.GameCRC, decoded.GameCRC)
	assert.Equal(t, pkt.TCPPort, decoded.TCPPort)
	assert.Equal(t, pkt.GameName, decoded.GameName)
	assert.Equal(t, pkt.LinkMode, decoded.LinkMode)
}

func TestDiscoveryPacket_TooShort(t *testing.T) {
	_, err := DecodeDiscoveryPacket([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestDiscoveryRoundTrip_HostListMatchesSentFields(t *testing.T) {
	const magic = 0x4E584452

	serverConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer serverConn.Close()

	clientConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer clientConn.Close()

	pkt := DiscoveryPacket{
		Magic:           magic,
		ProtocolVersion: 2,
		GameCRC:         0xC0FFEE,
		TCPPort:         55435,
		GameName:        "Tetris",
		LinkMode:        "",
	}
	_, err = serverConn.WriteToUDP(pkt.Encode(), clientConn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)

	hosts, err := ReceiveDiscoveryResponses(clientConn, magic, nil, 8)
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, pkt.GameCRC, hosts[0].GameCRC)
	assert.Equal(t, pkt.TCPPort, hosts[0].TCPPort)
	assert.Equal(t, pkt.GameName, hosts[0].GameName)
}

func TestDiscoveryRoundTrip_DedupsBySenderIP(t *testing.T) {
	const magic = 0x47424452

	serverConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer serverConn.Close()

	clientConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer clientConn.Close()

	pkt := DiscoveryPacket{Magic: uint32(magic), GameCRC: 1, TCPPort: 1}
	dst := clientConn.LocalAddr().(*net.UDPAddr)
	_, err = serverConn.WriteToUDP(pkt.Encode(), dst)
	require.NoError(t, err)
	_, err = serverConn.WriteToUDP(pkt.Encode(), dst)
	require.NoError(t, err)

	hosts, err := ReceiveDiscoveryResponses(clientConn, uint32(magic), nil, 8)
	require.NoError(t, err)
	assert.Len(t, hosts, 1)
}

func TestHasConnection_NeverPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		HasConnection()
	})
}
