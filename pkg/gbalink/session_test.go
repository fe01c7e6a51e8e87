package gbalink

import (
	"sync"
	"testing"
	"time"

	"github.com/nextui-games/linkrt/pkg/core"
	"github.com/nextui-games/linkrt/pkg/discovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForPhase(t *testing.T, s *Session, want Phase, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Phase() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("phase never reached %s, stuck at %s", want, s.Phase())
}

func noFields() discovery.Fields { return discovery.Fields{} }

// recvCollector is a small test double recording Receive callback
// deliveries under a mutex.
type recvCollector struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (c *recvCollector) callback(_ core.PeerID, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, append([]byte(nil), payload...))
}

func (c *recvCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func TestSession_HostClientHandshakeAndDataFlow(t *testing.T) {
	const port = 57001

	var hostRecv, clientRecv recvCollector
	host := NewSession(core.Callbacks{Receive: hostRecv.callback}, "mode-a", nil, "host-session")
	client := NewSession(core.Callbacks{Receive: clientRecv.callback}, "mode-a", nil, "client-session")
	defer host.Close()
	defer client.Close()

	require.NoError(t, host.StartHost(port, noFields))

	connectErr := make(chan error, 1)
	go func() { connectErr <- client.Connect("127.0.0.1:57001") }()

	waitForPhase(t, host, Connected, 2*time.Second)
	waitForPhase(t, client, Connected, 2*time.Second)
	require.NoError(t, <-connectErr)

	require.NoError(t, host.Send(core.PeerClient, []byte("ping")))
	require.NoError(t, client.Send(core.PeerHost, []byte("pong")))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_ = host.Poll()
		_ = client.Poll()
		if hostRecv.count() > 0 && clientRecv.count() > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	require.Equal(t, 1, clientRecv.count())
	assert.Equal(t, []byte("ping"), clientRecv.payloads[0])
	require.Equal(t, 1, hostRecv.count())
	assert.Equal(t, []byte("pong"), hostRecv.payloads[0])
}

func TestSession_LinkModeMismatchReturnsNeedsReload(t *testing.T) {
	const port = 57011

	host := NewSession(core.Callbacks{}, "mode-a", nil, "")
	client := NewSession(core.Callbacks{}, "mode-b", nil, "")
	defer host.Close()
	defer client.Close()

	require.NoError(t, host.StartHost(port, noFields))

	err := client.Connect("127.0.0.1:57011")
	assert.ErrorIs(t, err, ErrNeedsReload)
	assert.Equal(t, "mode-a", client.PendingLinkMode())
	assert.Equal(t, "mode-b", client.ClientLinkMode())
}

func TestSession_StartHostTwiceFails(t *testing.T) {
	host := NewSession(core.Callbacks{}, "mode-a", nil, "")
	defer host.Close()

	require.NoError(t, host.StartHost(57021, noFields))
	err := host.StartHost(57021, noFields)
	assert.ErrorIs(t, err, ErrAlreadyActive)
}

func TestSession_DisconnectIdempotentWhenOff(t *testing.T) {
	s := NewSession(core.Callbacks{}, "mode-a", nil, "")
	s.Disconnect() // no-op, must not panic
	assert.Equal(t, Off, s.Phase())
}

func TestSession_DisconnectNotifiesPeer(t *testing.T) {
	const port = 57031

	var clientDisconnected sync.WaitGroup
	clientDisconnected.Add(1)
	var once sync.Once

	host := NewSession(core.Callbacks{}, "mode-a", nil, "")
	client := NewSession(core.Callbacks{
		Disconnected: func(core.PeerID) { once.Do(clientDisconnected.Done) },
	}, "mode-a", nil, "")
	defer host.Close()
	defer client.Close()

	require.NoError(t, host.StartHost(port, noFields))
	connectErr := make(chan error, 1)
	go func() { connectErr <- client.Connect("127.0.0.1:57031") }()

	waitForPhase(t, host, Connected, 2*time.Second)
	waitForPhase(t, client, Connected, 2*time.Second)
	require.NoError(t, <-connectErr)

	host.Disconnect()

	done := make(chan struct{})
	go func() {
		clientDisconnected.Wait()
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-done:
			return
		default:
		}
		_ = client.Poll()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("client never observed host disconnect")
}
