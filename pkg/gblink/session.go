// Package gblink orchestrates the GB/GBC core's own internal TCP link: it
// writes the core's network options, reuses the discovery beacon shared
// with GBA Link, and infers connection status from the core's log output
// instead of parsing any packets of its own (spec.md §4.5).
package gblink

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nextui-games/linkrt/pkg/core"
	"github.com/nextui-games/linkrt/pkg/discovery"
	"github.com/nextui-games/linkrt/pkg/logging"
)

// connectedSubstrings and disconnectedSubstrings are scanned for in every
// line the core logs (spec.md §4.5 "hooked core log callback"). The core
// has no structured connection API of its own; this is the only signal the
// orchestrator gets.
var (
	connectedSubstrings    = []string{"link established", "client connected", "link connected"}
	disconnectedSubstrings = []string{"link closed", "link lost", "connection reset"}
)

// Session drives one GB Link orchestration: option writes plus discovery
// and log-line observation. It never touches a socket directly.
type Session struct {
	mu sync.Mutex

	phase Phase
	role  Role

	writer core.OptionWriter
	cb     core.Callbacks

	disc   *discovery.Host
	fields discovery.FieldsFunc

	statusMessage string
	hostIP        string

	emitter   *logging.Emitter
	sessionID string

	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewSession constructs an idle (Off) GB Link session. writer is the
// core's batched-option-write surface (spec.md §6.3 "option-batch
// boundary").
func NewSession(writer core.OptionWriter, cb core.Callbacks, emitter *logging.Emitter, sessionID string) *Session {
	return &Session{
		phase:         Off,
		statusMessage: "Off",
		writer:        writer,
		cb:            core.Fill(cb),
		emitter:       emitter,
		sessionID:     sessionID,
	}
}

func (s *Session) emit(eventType, summary string, data interface{}) {
	if s.emitter == nil {
		return
	}
	_ = s.emitter.Emit(eventType, summary, data)
}

// Phase returns the current phase under the session mutex.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Status returns a short human-readable status string.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusMessage
}

func (s *Session) setPhaseLocked(p Phase, status string) {
	if s.phase == p {
		return
	}
	old := s.phase
	s.phase = p
	s.statusMessage = status
	s.emit(logging.EventPhaseChange, status, logging.PhaseChangeData{From: old.String(), To: p.String()})
}

// applyBatch runs one begin/set.../end/force cycle (spec.md §4.5 "option
// writes... wrapped in a batch").
func (s *Session) applyBatch(sets map[string]string) {
	s.writer.BeginOptionBatch()
	for name, value := range sets {
		s.writer.SetOption(name, value)
	}
	s.writer.EndOptionBatch()
	s.writer.ForceOptionUpdate()
}

// StartHost programs the core as a link server and starts the shared
// discovery beacon.
func (s *Session) StartHost(fields discovery.FieldsFunc) error {
	s.mu.Lock()
	if s.phase != Off {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.mu.Unlock()

	disc, err := discovery.NewHost(discovery.GBLink, fields)
	if err != nil {
		return err
	}

	s.applyBatch(map[string]string{
		linkModeOption: linkModeServer,
		linkPortOption: strconv.Itoa(DefaultPort),
	})

	s.mu.Lock()
	s.role = RoleHost
	s.disc = disc
	s.fields = fields
	s.closed.Store(false)
	s.setPhaseLocked(Waiting, "Hosting")
	s.mu.Unlock()

	s.wg.Add(1)
	go s.broadcastLoop()
	return nil
}

func (s *Session) broadcastLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for !s.closed.Load() {
		<-ticker.C
		s.mu.Lock()
		disc := s.disc
		phase := s.phase
		s.mu.Unlock()
		if disc == nil || phase != Waiting {
			return
		}
		_ = disc.Poll(time.Now())
	}
}

// Connect programs the core as a link client pointed at hostIP. A client
// opens no discovery socket; a host's beacon is closed once the core
// reports the link up (spec.md §4.5 "UDP sockets are closed on connect").
func (s *Session) Connect(hostIP string) error {
	s.mu.Lock()
	if s.phase != Off {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.mu.Unlock()

	digits, err := encodeHostDigits(hostIP)
	if err != nil {
		return err
	}

	sets := map[string]string{linkModeOption: linkModeClient}
	for i, d := range digits {
		sets[hostDigitOption(i)] = d
	}
	s.applyBatch(sets)

	s.mu.Lock()
	s.role = RoleClient
	s.hostIP = hostIP
	s.closed.Store(false)
	s.setPhaseLocked(Connecting, "Connecting to "+hostIP)
	s.mu.Unlock()
	return nil
}

// OnCoreLogLine is registered as a core.LogLineHook: every line the core
// emits is scanned for a connection-state phrase (spec.md §4.5).
func (s *Session) OnCoreLogLine(line string) {
	if containsAny(line, connectedSubstrings) {
		s.handleConnected()
		return
	}
	if containsAny(line, disconnectedSubstrings) {
		s.handleDisconnected("Core reported link closed")
	}
}

func (s *Session) handleConnected() {
	s.mu.Lock()
	if s.phase == Connected {
		s.mu.Unlock()
		return
	}
	if s.disc != nil {
		s.disc.Close()
		s.disc = nil
	}
	var peer core.PeerID = core.PeerClient
	if s.role == RoleClient {
		peer = core.PeerHost
	}
	s.setPhaseLocked(Connected, "Connected")
	s.mu.Unlock()

	s.cb.Connected(peer)
}

func (s *Session) handleDisconnected(reason string) {
	s.mu.Lock()
	if s.phase == Off {
		s.mu.Unlock()
		return
	}
	role := s.role
	s.mu.Unlock()

	peer := core.PeerClient
	if role == RoleClient {
		peer = core.PeerHost
	}
	s.cb.Disconnected(peer)
	s.cb.Stop()

	s.mu.Lock()
	s.setPhaseLocked(Off, reason)
	s.mu.Unlock()
}

// Disconnect programs the core back to "Not Connected", resets the digit
// options, and tears down discovery if still open (spec.md §4.5).
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.phase == Off {
		s.mu.Unlock()
		return
	}
	role := s.role
	s.mu.Unlock()

	sets := map[string]string{linkModeOption: linkModeOff}
	for i := 0; i < hostDigitOptionCount; i++ {
		sets[hostDigitOption(i)] = "0"
	}
	s.applyBatch(sets)

	peer := core.PeerClient
	if role == RoleClient {
		peer = core.PeerHost
	}
	s.cb.Disconnected(peer)
	s.cb.Stop()

	s.mu.Lock()
	if s.disc != nil {
		s.disc.Close()
		s.disc = nil
	}
	s.setPhaseLocked(Off, "Disconnected")
	s.mu.Unlock()
}

// Close stops the broadcast loop and releases discovery resources without
// reprogramming the core (used on process shutdown).
func (s *Session) Close() error {
	s.closed.Store(true)
	s.mu.Lock()
	disc := s.disc
	s.disc = nil
	s.phase = Off
	s.mu.Unlock()

	if disc != nil {
		disc.Close()
	}
	s.wg.Wait()
	return nil
}

func containsAny(line string, substrings []string) bool {
	lower := strings.ToLower(line)
	for _, sub := range substrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
