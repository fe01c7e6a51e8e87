package netplay

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nextui-games/linkrt/internal/errx"
	"github.com/nextui-games/linkrt/pkg/core"
	"github.com/nextui-games/linkrt/pkg/discovery"
	"github.com/nextui-games/linkrt/pkg/logging"
	"github.com/nextui-games/linkrt/pkg/netcommon"
)

// KeepaliveIntervalFrames is how often a KEEPALIVE is sent while stalled
// (spec.md §4.3.3 step 4).
const KeepaliveIntervalFrames = 30

// StallTimeoutFrames promotes a stall to a disconnect after this many
// consecutive frames without both inputs (spec.md §4.3.7, ~3s at 60Hz).
const StallTimeoutFrames = 180

// StallCountdownFrames is where the UI begins showing a countdown.
const StallCountdownFrames = 60

// recvAttempts and recvBudget implement the pre-frame receive loop's bound
// (spec.md §4.3.3 step 3): up to 10 attempts, ~16ms each.
const (
	recvAttempts = 10
	recvBudget   = 16 * time.Millisecond
)

// stateSyncAckTimeout bounds how long the host waits for STATE_ACK
// (spec.md §4.3.6).
const stateSyncAckTimeout = 10 * time.Second

// Stats is a supplemented, UI-facing accessor not named by the distilled
// spec (SPEC_FULL.md §D.1): counters useful for a diagnostics screen.
type Stats struct {
	FramesPlayed   uint64
	StallEvents    uint64
	PacketsSent    uint64
	PacketsRecv    uint64
	KeepalivesSent uint64
	// LastRTT is the elapsed time between this side's last sent KEEPALIVE
	// and the next KEEPALIVE received from the peer, both exchanged while
	// stalled (spec.md §4.3.3 step 4, "KEEPALIVE both"). It is an estimate,
	// not a true request/response round trip: either side may send on its
	// own schedule.
	LastRTT time.Duration
}

// Session is the Netplay engine: one process-wide instance owns the
// lockstep exchange for at most one peer at a time (spec.md §3.1, §4.3).
type Session struct {
	mu sync.Mutex

	phase Phase
	role  Role

	conn     net.Conn
	listener net.Listener

	buf        frameBuffer
	runFrame   uint32
	selfFrame  uint32
	otherFrame uint32
	sentSelf   bool // whether self_frame's INPUT has already been sent

	stallFrames  int
	remotePaused bool
	localPaused  bool
	silenceAudio bool

	lastKeepaliveSentAt time.Time

	statusMessage string
	stats         Stats

	cb       core.Callbacks
	state    core.StateSerializer
	disc     *discovery.Host
	emitter  *logging.Emitter
	sessionID string

	closed  atomic.Bool
	wg      sync.WaitGroup
	acceptErr chan error
}

// NewSession constructs an idle (Off) Netplay session. cb receives core
// callbacks; state, if non-nil, supplies savestate serialization for the
// sync handshake.
func NewSession(cb core.Callbacks, state core.StateSerializer, emitter *logging.Emitter, sessionID string) *Session {
	return &Session{
		phase:         Off,
		statusMessage: "Off",
		cb:            core.Fill(cb),
		state:         state,
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

// Status returns a short human-readable status string for the UI
// (spec.md §7 "User-visible behavior").
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusMessage
}

// SessionID returns the opaque session identifier passed to NewSession.
func (s *Session) SessionID() string {
	return s.sessionID
}

// Stats returns a snapshot of the session's diagnostic counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ShouldSilenceAudio is Netplay_shouldSilenceAudio (spec.md §4.3.8): true
// exactly while Stalled.
func (s *Session) ShouldSilenceAudio() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.silenceAudio
}

func (s *Session) setPhase(p Phase, status string) {
	if s.phase == p {
		return
	}
	old := s.phase
	s.phase = p
	s.statusMessage = status
	s.emit(logging.EventPhaseChange, fmt.Sprintf("%s -> %s", old, p), logging.PhaseChangeData{
		From: old.String(), To: p.String(),
	})
}

// StartHost opens a listen socket and a discovery beacon, then spawns a
// listener goroutine that waits for one client (spec.md §4.3.2). Only one
// session may be active at a time (spec.md §8.1 "at-most-one session").
func (s *Session) StartHost(port int, fields discovery.FieldsFunc) error {
	s.mu.Lock()
	if s.phase != Off {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.mu.Unlock()

	ln, err := netcommon.NewListenSocket(port)
	if err != nil {
		return errx.Wrap(ErrListenFailed, err)
	}

	disc, err := discovery.NewHost(discovery.Netplay, fields)
	if err != nil {
		ln.Close()
		return err
	}

	s.mu.Lock()
	s.role = RoleHost
	s.listener = ln
	s.disc = disc
	s.closed.Store(false)
	s.setPhase(Waiting, fmt.Sprintf("Hosting on port %d", port))
	s.mu.Unlock()

	s.acceptErr = make(chan error, 1)
	s.wg.Add(2)
	go s.acceptLoop()
	go s.broadcastLoop()
	return nil
}

func (s *Session) acceptLoop() {
	defer s.wg.Done()
	conn, err := s.listener.Accept()
	if err != nil {
		if !s.closed.Load() {
			s.acceptErr <- err
		}
		return
	}

	s.mu.Lock()
	s.conn = conn
	if s.disc != nil {
		s.disc.Close()
		s.disc = nil
	}
	s.setPhase(Syncing, fmt.Sprintf("Client connected: %s", conn.RemoteAddr()))
	s.mu.Unlock()

	if err := s.hostHandshake(conn); err != nil {
		s.mu.Lock()
		s.teardownLocked(err.Error())
		s.mu.Unlock()
		return
	}
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

// Connect dials a host and runs the client handshake (spec.md §4.3.2,
// Connecting -> Syncing -> Playing).
func (s *Session) Connect(hostAddr string, timeout time.Duration) error {
	s.mu.Lock()
	if s.phase != Off {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.role = RoleClient
	s.setPhase(Connecting, fmt.Sprintf("Connecting to %s", hostAddr))
	s.closed.Store(false)
	s.mu.Unlock()

	conn, err := net.DialTimeout("tcp4", hostAddr, timeout)
	if err != nil {
		s.mu.Lock()
		s.setPhase(Off, "Connect failed")
		s.mu.Unlock()
		return errx.Wrap(ErrDialFailed, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.setPhase(Syncing, "Synchronizing state")
	s.mu.Unlock()

	if err := s.clientHandshake(conn); err != nil {
		s.mu.Lock()
		s.teardownLocked(err.Error())
		s.mu.Unlock()
		return err
	}
	return nil
}

// hostHandshake drives state sync from the host side (spec.md §4.3.6):
// serialize, STATE_HDR, chunked STATE_DATA, await STATE_ACK, send READY.
func (s *Session) hostHandshake(conn net.Conn) error {
	if s.state == nil {
		if _, err := conn.Write(Packet{Cmd: CmdReady}.Encode()); err != nil {
			return errx.Wrap(ErrStateSyncFailed, err)
		}
		return s.finishSync()
	}

	data, err := s.state.SerializeState()
	if err != nil {
		return errx.Wrap(ErrStateSyncFailed, err)
	}

	if _, err := conn.Write(Packet{Cmd: CmdStateHdr, Payload: encodeU32(uint32(len(data)))}.Encode()); err != nil {
		return errx.Wrap(ErrStateSyncFailed, err)
	}

	for off := 0; off < len(data); off += StateChunkSize {
		end := off + StateChunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := conn.Write(data[off:end]); err != nil {
			return errx.Wrap(ErrStateSyncFailed, err)
		}
	}

	conn.SetReadDeadline(time.Now().Add(stateSyncAckTimeout))
	cmd, _, _, err := readPacket(conn)
	conn.SetReadDeadline(time.Time{})
	if err != nil || cmd != CmdStateAck {
		return errx.Wrap(ErrStateSyncFailed, err)
	}

	if _, err := conn.Write(Packet{Cmd: CmdReady}.Encode()); err != nil {
		return errx.Wrap(ErrStateSyncFailed, err)
	}
	return s.finishSync()
}

// clientHandshake drives state sync from the client side.
func (s *Session) clientHandshake(conn net.Conn) error {
	if s.state == nil {
		cmd, _, _, err := readPacket(conn)
		if err != nil || cmd != CmdReady {
			return errx.Wrap(ErrStateSyncFailed, err)
		}
		return s.finishSync()
	}

	cmd, _, payload, err := readPacket(conn)
	if err != nil || cmd != CmdStateHdr {
		return errx.Wrap(ErrStateSyncFailed, err)
	}
	wantSize, err := DecodeStateHdrSize(payload)
	if err != nil {
		return errx.Wrap(ErrStateSyncFailed, err)
	}

	localSize, err := s.state.StateSize()
	if err != nil {
		return errx.Wrap(ErrStateSyncFailed, err)
	}
	if uint32(localSize) != wantSize {
		return ErrStateSizeMismatch
	}

	data := make([]byte, wantSize)
	if err := readFull(conn, data); err != nil {
		return errx.Wrap(ErrStateSyncFailed, err)
	}
	if err := s.state.DeserializeState(data); err != nil {
		return errx.Wrap(ErrStateSyncFailed, err)
	}

	if _, err := conn.Write(Packet{Cmd: CmdStateAck}.Encode()); err != nil {
		return errx.Wrap(ErrStateSyncFailed, err)
	}

	cmd, _, _, err = readPacket(conn)
	if err != nil || cmd != CmdReady {
		return errx.Wrap(ErrStateSyncFailed, err)
	}
	return s.finishSync()
}

// finishSync seeds frames 0..L-1 with zero input and transitions to
// Playing (spec.md §4.3.6).
func (s *Session) finishSync() error {
	s.mu.Lock()
	s.buf.seedZero(InputLatency)
	s.runFrame = 0
	s.selfFrame = InputLatency
	s.cb.Connected(core.PeerClient)
	s.setPhase(Playing, "Connected")
	s.mu.Unlock()
	return nil
}

// PreFrame implements spec.md §4.3.3: called once per emulator frame,
// returns true iff the frame should execute.
func (s *Session) PreFrame(localInput uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case Playing, Stalled:
		// fall through to the full procedure below.
	case Paused:
		return false
	default:
		// Off, Waiting, Connecting, Syncing, Disconnected: not yet (or no
		// longer) in a running lockstep session, so the emulator advances
		// unsynchronized (spec.md §4.3.3 step 1).
		return true
	}

	if !s.sentSelf {
		s.buf.write(s.selfFrame, s.role == RoleHost, localInput)
		s.sendLocked(Packet{Cmd: CmdInput, Frame: s.selfFrame, Payload: u16payload(localInput)})
		s.sentSelf = true
	}

	for attempt := 0; attempt < recvAttempts; attempt++ {
		if s.buf.ready(s.runFrame) {
			break
		}
		s.mu.Unlock()
		cmd, frame, payload, err := s.recvTimeout(recvBudget)
		s.mu.Lock()

		if s.phase == Off || s.phase == Disconnected {
			return false
		}
		if err != nil {
			if isFatalConnErr(err) {
				if s.role == RoleHost {
					s.teardownLocked("Remote disconnected")
					s.returnToWaitingLocked()
				} else {
					s.teardownLocked("Host disconnected")
				}
				return false
			}
			continue // benign: read timeout, try again
		}
		if !s.dispatchLocked(cmd, frame, payload) {
			return false
		}
	}

	if !s.buf.ready(s.runFrame) {
		s.stallFrames++
		if s.stallFrames%KeepaliveIntervalFrames == 0 {
			s.sendLocked(Packet{Cmd: CmdKeepalive})
			s.stats.KeepalivesSent++
			s.lastKeepaliveSentAt = time.Now()
		}
		if !s.remotePaused && !s.localPaused && s.stallFrames > StallTimeoutFrames {
			s.teardownLocked("Remote disconnected (timeout)")
			return false
		}
		s.silenceAudio = true
		s.setPhase(Stalled, s.stallStatus())
		s.stats.StallEvents++
		return false
	}

	s.stallFrames = 0
	s.silenceAudio = false
	s.setPhase(Playing, "Connected")
	return true
}

func (s *Session) stallStatus() string {
	remaining := StallTimeoutFrames - s.stallFrames
	if s.stallFrames >= StallCountdownFrames {
		return fmt.Sprintf("Waiting... (%ds)", remaining/60)
	}
	return "Waiting for peer..."
}

// PostFrame implements spec.md §4.3.4: advance run_frame and self_frame.
func (s *Session) PostFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Playing {
		return
	}
	s.runFrame++
	s.selfFrame++
	s.sentSelf = false
	s.stats.FramesPlayed++
}

// dispatchLocked handles one received command under the mutex
// (spec.md §4.3.3 step 3). Returns false if PreFrame should return false
// immediately (a disconnect happened).
func (s *Session) dispatchLocked(cmd Command, frame uint32, payload []byte) bool {
	s.stats.PacketsRecv++
	switch cmd {
	case CmdInput:
		input, err := DecodeInput(payload)
		if err != nil {
			return true // malformed: discard, stay in phase
		}
		s.buf.write(frame, s.role != RoleHost, input)
		if frame > s.otherFrame {
			s.otherFrame = frame
		}
	case CmdDisconnect:
		if s.role == RoleHost {
			s.teardownLocked("Remote disconnected")
			s.returnToWaitingLocked()
		} else {
			s.teardownLocked("Host disconnected")
		}
		return false
	case CmdPause:
		s.remotePaused = true
	case CmdResume:
		s.remotePaused = false
	case CmdKeepalive:
		// Evidence the peer is alive during a stall; if we've sent our own
		// since the last estimate, fold the gap into LastRTT.
		if !s.lastKeepaliveSentAt.IsZero() {
			s.stats.LastRTT = time.Since(s.lastKeepaliveSentAt)
			s.lastKeepaliveSentAt = time.Time{}
		}
	}
	return true
}

// recvTimeout blocks up to budget for one packet, releasing no lock itself
// (caller has already released the session mutex).
func (s *Session) recvTimeout(budget time.Duration) (Command, uint32, []byte, error) {
	conn := s.conn
	if conn == nil {
		return 0, 0, nil, ErrNotActive
	}
	conn.SetReadDeadline(time.Now().Add(budget))
	cmd, frame, payload, err := readPacket(conn)
	conn.SetReadDeadline(time.Time{})
	if err != nil {
		return 0, 0, nil, err
	}
	return cmd, frame, payload, nil
}

// sendLocked writes pkt to the wire. Called with the mutex held; matches
// the teacher's pattern of keeping short synchronous writes under the lock
// and only releasing around long or blocking I/O (send_all equivalents are
// not needed here: Netplay packets are tiny and TCP_NODELAY is set).
func (s *Session) sendLocked(pkt Packet) {
	if s.conn == nil {
		return
	}
	if _, err := s.conn.Write(pkt.Encode()); err == nil {
		s.stats.PacketsSent++
	}
}

// Pause notifies the peer that a local menu is open (spec.md §4.3.2).
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.localPaused {
		return
	}
	s.localPaused = true
	s.sendLocked(Packet{Cmd: CmdPause})
	s.setPhase(Paused, "Paused")
}

// Resume clears the local pause flag and notifies the peer.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.localPaused {
		return
	}
	s.localPaused = false
	s.sendLocked(Packet{Cmd: CmdResume})
	s.setPhase(Playing, "Connected")
}

// Disconnect performs an orderly shutdown (spec.md §8.2 "Disconnect
// idempotence": a no-op when already Off).
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == Off {
		return
	}
	if s.conn != nil {
		s.sendLocked(Packet{Cmd: CmdDisconnect})
	}
	s.teardownLocked("Disconnected")
}

// teardownLocked closes the connection, notifies the core, and returns to
// Off (or Waiting, for a host, via returnToWaitingLocked).
func (s *Session) teardownLocked(status string) {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.cb.Disconnected(core.PeerClient)
	s.cb.Stop()
	s.setPhase(Off, status)
}

// returnToWaitingLocked reopens discovery broadcast after a host's client
// departs (spec.md §4.3.2, §8.4 scenario 6).
func (s *Session) returnToWaitingLocked() {
	if s.listener == nil {
		return
	}
	disc, err := discovery.NewHost(discovery.Netplay, func() discovery.Fields { return discovery.Fields{} })
	if err == nil {
		s.disc = disc
	}
	s.setPhase(Waiting, "Waiting for client")
	s.wg.Add(2)
	go s.acceptLoop()
	go s.broadcastLoop()
}

// Close tears down a host's listener and any discovery sockets (used for
// full shutdown; Disconnect leaves the listener socket open but returns
// the session to Off without accepting another client).
func (s *Session) Close() error {
	s.closed.Store(true)
	s.mu.Lock()
	ln := s.listener
	disc := s.disc
	conn := s.conn
	s.listener = nil
	s.disc = nil
	s.conn = nil
	s.phase = Off
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if disc != nil {
		disc.Close()
	}
	if ln != nil {
		ln.Close()
	}
	s.wg.Wait()
	return nil
}

func encodeU32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func u16payload(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

// readPacket reads one framed packet from conn.
func readPacket(conn net.Conn) (Command, uint32, []byte, error) {
	hdr := make([]byte, HeaderSize)
	if err := readFull(conn, hdr); err != nil {
		return 0, 0, nil, err
	}
	cmd, frame, size, err := DecodeHeader(hdr)
	if err != nil {
		return 0, 0, nil, err
	}
	if size == 0 {
		return cmd, frame, nil, nil
	}
	payload := make([]byte, size)
	if err := readFull(conn, payload); err != nil {
		return 0, 0, nil, err
	}
	return cmd, frame, payload, nil
}

// isFatalConnErr reports whether err represents a lost connection
// (spec.md §4.3.7: recv==0 or ECONNRESET/EPIPE/ENOTCONN) as opposed to a
// benign read-deadline expiry, which the caller should just retry past.
func isFatalConnErr(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return false
	}
	return true
}

func readFull(conn net.Conn, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		if n > 0 {
			total += n
		}
		if err != nil {
			return err
		}
	}
	return nil
}
