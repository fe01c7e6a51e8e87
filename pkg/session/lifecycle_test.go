package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextui-games/linkrt/pkg/radio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLink struct {
	status       string
	disconnected bool
	closed       bool
}

func (f *fakeLink) Status() string  { return f.status }
func (f *fakeLink) Disconnect()     { f.disconnected = true }
func (f *fakeLink) Close() error    { f.closed = true; return nil }

func TestSession_Precheck_HotspotRequiresRadio(t *testing.T) {
	s := New(TransportGBALink, RoleHost, ModeHotspot, nil)
	assert.ErrorIs(t, s.Precheck(), ErrRadioUnavailable)
}

func TestSession_Precheck_HotspotWithRadioOK(t *testing.T) {
	s := New(TransportGBALink, RoleHost, ModeHotspot, radio.NewLoopback(""))
	assert.NoError(t, s.Precheck())
}

func TestSession_AcquireAddress_HotspotHost(t *testing.T) {
	r := radio.NewLoopback("HomeWiFi")
	s := New(TransportGBALink, RoleHost, ModeHotspot, r)

	ip, err := s.AcquireAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", ip)
	assert.NotEmpty(t, s.ssid)
	assert.True(t, s.previousJoined)
}

func TestSession_AcquireAddress_CanceledContext(t *testing.T) {
	r := &radio.Loopback{} // hotspot IP left empty, never "ready"
	s := New(TransportGBALink, RoleHost, ModeHotspot, r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.AcquireAddress(ctx)
	assert.ErrorIs(t, err, ErrConnectCanceled)
}

func TestSession_WaitConnected_SucceedsWhenReady(t *testing.T) {
	s := New(TransportNetplay, RoleHost, ModeWiFi, nil)
	ready := false
	go func() {
		time.Sleep(20 * time.Millisecond)
		ready = true
	}()
	err := s.WaitConnected(context.Background(), time.Second, func() bool { return ready })
	assert.NoError(t, err)
}

func TestSession_WaitConnected_TimesOut(t *testing.T) {
	s := New(TransportNetplay, RoleHost, ModeWiFi, nil)
	err := s.WaitConnected(context.Background(), 30*time.Millisecond, func() bool { return false })
	assert.ErrorIs(t, err, ErrDHCPTimeout)
}

func TestSession_Teardown_RecordsHistoryAndRestoresWiFi(t *testing.T) {
	r := radio.NewLoopback("HomeWiFi")
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer h.Close()

	s := New(TransportGBALink, RoleHost, ModeHotspot, r, WithHistory(h))
	_, err = s.AcquireAddress(context.Background())
	require.NoError(t, err)

	link := &fakeLink{status: "Connected"}
	s.Attach(link)
	s.Teardown("test teardown")

	assert.True(t, link.disconnected)
	assert.True(t, link.closed)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && r.IsConnected() == false {
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, r.IsConnected())

	entries, err := h.Recent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, s.ID, entries[0].SessionID)
	assert.Equal(t, "test teardown", entries[0].Reason)
}
