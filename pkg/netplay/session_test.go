package netplay

import (
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

func TestSession_HostClientHandshakeAndLockstep(t *testing.T) {
	const port = 56001

	host := NewSession(core.Callbacks{}, nil, nil, "host-session")
	client := NewSession(core.Callbacks{}, nil, nil, "client-session")
	defer host.Close()
	defer client.Close()

	require.NoError(t, host.StartHost(port, noFields))

	go func() {
		_ = client.Connect("127.0.0.1:56001", 2*time.Second)
	}()

	waitForPhase(t, host, Playing, 2*time.Second)
	waitForPhase(t, client, Playing, 2*time.Second)

	// self_frame starts at run_frame+InputLatency(=2), so the very first
	// preFrame call already samples and sends input for frame 2 while
	// frames 0 and 1 execute pass-through on the pre-seeded zeros
	// (spec.md §8.4 scenario 1). Drive three frames on each side
	// concurrently since a call may block briefly on the peer's packet.
	runThreeFrames := func(s *Session, frame2Input uint16) []bool {
		results := make([]bool, 3)
		results[0] = s.PreFrame(frame2Input) // samples frame 2
		s.PostFrame()
		results[1] = s.PreFrame(0) // samples frame 3
		s.PostFrame()
		results[2] = s.PreFrame(0) // executes frame 2
		s.PostFrame()
		return results
	}

	var hostResults, clientResults []bool
	done := make(chan struct{}, 2)
	go func() {
		hostResults = runThreeFrames(host, 0x0001)
		done <- struct{}{}
	}()
	go func() {
		clientResults = runThreeFrames(client, 0x0002)
		done <- struct{}{}
	}()
	<-done
	<-done

	assert.Equal(t, []bool{true, true, true}, hostResults)
	assert.Equal(t, []bool{true, true, true}, clientResults)

	hp1, hp2 := host.buf.read(2)
	assert.Equal(t, uint16(0x0001), hp1)
	assert.Equal(t, uint16(0x0002), hp2)

	cp1, cp2 := client.buf.read(2)
	assert.Equal(t, hp1, cp1)
	assert.Equal(t, hp2, cp2)
}

func TestSession_StartHostTwiceFails(t *testing.T) {
	host := NewSession(core.Callbacks{}, nil, nil, "")
	defer host.Close()

	require.NoError(t, host.StartHost(56011, noFields))
	err := host.StartHost(56011, noFields)
	assert.ErrorIs(t, err, ErrAlreadyActive)
}

func TestSession_DisconnectIdempotentWhenOff(t *testing.T) {
	s := NewSession(core.Callbacks{}, nil, nil, "")
	s.Disconnect() // no-op, must not panic
	assert.Equal(t, Off, s.Phase())
}

func TestSession_PauseResumeRoundTrip(t *testing.T) {
	const port = 56021
	host := NewSession(core.Callbacks{}, nil, nil, "")
	client := NewSession(core.Callbacks{}, nil, nil, "")
	defer host.Close()
	defer client.Close()

	require.NoError(t, host.StartHost(port, noFields))
	go func() { _ = client.Connect("127.0.0.1:56021", 2*time.Second) }()

	waitForPhase(t, host, Playing, 2*time.Second)
	waitForPhase(t, client, Playing, 2*time.Second)

	host.Pause()
	assert.Equal(t, Paused, host.Phase())
	assert.False(t, host.PreFrame(0))

	host.Resume()
	assert.Equal(t, Playing, host.Phase())
}

func TestSession_StalledPreFrameDoesNotOverwriteSentInput(t *testing.T) {
	const port = 56031
	host := NewSession(core.Callbacks{}, nil, nil, "")
	client := NewSession(core.Callbacks{}, nil, nil, "")
	defer host.Close()
	defer client.Close()

	require.NoError(t, host.StartHost(port, noFields))
	go func() { _ = client.Connect("127.0.0.1:56031", 2*time.Second) }()

	waitForPhase(t, host, Playing, 2*time.Second)
	waitForPhase(t, client, Playing, 2*time.Second)

	// One round on both sides (frame 0, pre-seeded, executes trivially),
	// then the client goes silent for good.
	require.True(t, host.PreFrame(0))
	host.PostFrame()
	require.True(t, client.PreFrame(0))
	client.PostFrame()

	// InputLatency (2) frames of margin remain buffered from the client's
	// last round, so host can still execute two more frames alone before
	// it genuinely runs out of peer data.
	require.True(t, host.PreFrame(0))
	host.PostFrame()
	require.True(t, host.PreFrame(0))
	host.PostFrame()

	// Now host has nothing left to pair against: PreFrame samples and
	// sends self_frame once, then must report stalled (false) on every
	// later call for that same frame without re-sampling local input
	// (spec.md §8.1 "lockstep agreement": both peers' slot values for any
	// executed frame must match what was actually sent).
	stalledFrame := host.selfFrame
	assert.False(t, host.PreFrame(0x1111))
	p1, _ := host.buf.read(stalledFrame)
	assert.Equal(t, uint16(0x1111), p1)

	assert.False(t, host.PreFrame(0x2222))
	p1Again, _ := host.buf.read(stalledFrame)
	assert.Equal(t, uint16(0x1111), p1Again,
		"already-sent input for a stalled frame must not be overwritten by a later PreFrame sample")
}
