// Package session sequences the thin orchestration layer above the three
// link transports (spec.md §4.6): precondition checks, WiFi-vs-hotspot
// connection mode, SSID/IP acquisition, transport start, a cancellable
// connection wait, and teardown (including asynchronous hotspot restore).
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nextui-games/linkrt/pkg/logging"
	"github.com/nextui-games/linkrt/pkg/netcommon"
	"github.com/nextui-games/linkrt/pkg/radio"
)

// Transport names which of the three link transports a Session wraps.
type Transport int

const (
	TransportNetplay Transport = iota
	TransportGBALink
	TransportGBLink
)

func (t Transport) String() string {
	switch t {
	case TransportNetplay:
		return "netplay"
	case TransportGBALink:
		return "gbalink"
	case TransportGBLink:
		return "gblink"
	default:
		return "unknown"
	}
}

// Role is which side of the session this process plays.
type Role int

const (
	RoleHost Role = iota
	RoleClient
)

// Mode is how the two peers reach each other.
type Mode int

const (
	ModeWiFi Mode = iota
	ModeHotspot
)

var (
	ErrRadioUnavailable = errors.New("session: radio unavailable")
	ErrDHCPTimeout      = errors.New("session: timed out waiting for an IP address")
	ErrConnectCanceled  = errors.New("session: connection wait canceled")
	ErrAlreadyStarted   = errors.New("session: already started")
)

// dhcpWaitTimeout and dhcpPollInterval bound the hotspot-join IP wait
// (spec.md §5 "WiFi DHCP wait: up to 10s polling 500ms").
const (
	dhcpWaitTimeout  = 10 * time.Second
	dhcpPollInterval = 500 * time.Millisecond
)

// LinkSession is the narrow surface the session layer needs from any of
// pkg/netplay, pkg/gbalink, or pkg/gblink's Session types.
type LinkSession interface {
	Status() string
	Disconnect()
	Close() error
}

// Session is one session-lifecycle instance: it owns the radio (if
// hotspot mode was chosen), tracks a started transport, and records
// history on teardown.
type Session struct {
	ID        string
	Transport Transport
	Role      Role
	Mode      Mode

	radio   radio.Radio
	link    LinkSession
	history *History
	emitter *logging.Emitter

	ssid           string
	previousJoined bool
	startedAt      time.Time
}

// Option configures optional collaborators at construction.
type Option func(*Session)

// WithHistory attaches a persistent session journal.
func WithHistory(h *History) Option {
	return func(s *Session) { s.history = h }
}

// WithEmitter attaches structured event logging.
func WithEmitter(e *logging.Emitter) Option {
	return func(s *Session) { s.emitter = e }
}

// New allocates a session-lifecycle instance with a fresh ID.
func New(transport Transport, role Role, mode Mode, r radio.Radio, opts ...Option) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Transport: transport,
		Role:      role,
		Mode:      mode,
		radio:     r,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) emit(eventType, summary string, data interface{}) {
	if s.emitter == nil {
		return
	}
	_ = s.emitter.Emit(eventType, summary, data)
}

// Precheck verifies a radio is present before any hotspot work is
// attempted (spec.md §4.6 "precondition checks: WiFi available").
func (s *Session) Precheck() error {
	if s.Mode == ModeHotspot && s.radio == nil {
		return ErrRadioUnavailable
	}
	if s.Mode == ModeWiFi && !netcommon.HasConnection() {
		return ErrRadioUnavailable
	}
	return nil
}

// AcquireAddress brings up the chosen connection mode and returns the
// local IPv4 address a transport's StartHost/Connect needs.
//
// In hotspot host mode it saves the current WiFi association, derives a
// deterministic SSID from s.ID, starts the access point, and waits for its
// own IP to settle. In WiFi mode (or hotspot client mode, where the radio
// has already joined by the time this is called) it just reads the
// current address.
func (s *Session) AcquireAddress(ctx context.Context) (ip string, err error) {
	s.startedAt = time.Now()

	if s.Mode != ModeHotspot || s.Role != RoleHost {
		return s.waitForAddress(ctx, s.currentIP)
	}

	if err := s.radio.SaveCurrentConnection(); err != nil {
		return "", fmt.Errorf("save current wifi connection: %w", err)
	}
	s.previousJoined = true

	seed := seedFromUUID(s.ID)
	s.ssid = netcommon.GenerateHotspotSSID(netcommon.HotspotSSIDPrefix, seed)
	if err := s.radio.StartHotspot(s.ssid, s.radio.HotspotPassword()); err != nil {
		return "", fmt.Errorf("start hotspot: %w", err)
	}
	s.emit(logging.EventHotspotUp, "hotspot started: "+s.ssid, nil)

	return s.waitForAddress(ctx, func() string { return s.radio.HotspotIP() })
}

func (s *Session) currentIP() string {
	if s.radio != nil && s.radio.IsConnected() {
		return s.radio.IP()
	}
	return netcommon.LocalIPv4()
}

// waitForAddress polls getIP every dhcpPollInterval until it returns a
// non-empty, non-zero address, ctx is canceled, or dhcpWaitTimeout elapses.
func (s *Session) waitForAddress(ctx context.Context, getIP func() string) (string, error) {
	deadline := time.Now().Add(dhcpWaitTimeout)
	ticker := time.NewTicker(dhcpPollInterval)
	defer ticker.Stop()

	for {
		if ip := getIP(); ip != "" && ip != "0.0.0.0" {
			return ip, nil
		}
		if time.Now().After(deadline) {
			return "", ErrDHCPTimeout
		}
		select {
		case <-ctx.Done():
			return "", ErrConnectCanceled
		case <-ticker.C:
		}
	}
}

// WaitConnected polls isReady (typically a transport's Phase() against
// its Connected/Playing state) until it reports true, ctx is canceled, or
// timeout elapses.
func (s *Session) WaitConnected(ctx context.Context, timeout time.Duration, isReady func() bool) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if isReady() {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrDHCPTimeout
		}
		select {
		case <-ctx.Done():
			return ErrConnectCanceled
		case <-ticker.C:
		}
	}
}

// Attach records the started transport session so Teardown can drive it.
func (s *Session) Attach(link LinkSession) {
	s.link = link
}

// Teardown disconnects the transport, records history, and — if a
// hotspot was started — restores the previous WiFi association on a
// detached goroutine so the caller doesn't block the 5-10s restore
// (spec.md §4.6 "asynchronous hotspot teardown").
func (s *Session) Teardown(disconnectReason string) {
	var status string
	if s.link != nil {
		status = s.link.Status()
		s.link.Disconnect()
		_ = s.link.Close()
	}

	if s.history != nil {
		_ = s.history.Record(Entry{
			SessionID:  s.ID,
			Transport:  s.Transport.String(),
			Role:       roleString(s.Role),
			PeerStatus: status,
			Reason:     disconnectReason,
			StartedAt:  s.startedAt,
			EndedAt:    time.Now(),
		})
	}

	if s.Mode == ModeHotspot && s.Role == RoleHost && s.previousJoined {
		go s.restoreWiFiAsync()
	}
}

func (s *Session) restoreWiFiAsync() {
	_ = s.radio.StopHotspot()
	s.emit(logging.EventHotspotDown, "hotspot stopped", nil)
	_ = s.radio.RestorePreviousConnection()
}

func roleString(r Role) string {
	if r == RoleHost {
		return "host"
	}
	return "client"
}

// seedFromUUID folds a session's UUID down to a uint32 PRNG seed so its
// hotspot SSID is reproducible from the session ID alone.
func seedFromUUID(id string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(id); i++ {
		h ^= uint32(id[i])
		h *= 16777619
	}
	return h
}
