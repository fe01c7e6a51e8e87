package gbalink

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

// handshakePolls and handshakePollInterval implement the host's 5s wait for
// the client's READY (spec.md §4.4.3 step 1: 100 x 50ms polls).
const (
	handshakePolls        = 100
	handshakePollInterval = 50 * time.Millisecond
)

const handshakeTimeout = 5 * time.Second

// heartbeatInterval is the host-only keepalive cadence (spec.md §4.4.4
// step 2).
const heartbeatInterval = 500 * time.Millisecond

// idleTimeout disconnects a handshake-complete session with no received
// packets for this long (spec.md §5 "cancellation / timeouts").
const idleTimeout = 60 * time.Second

// maxRecvPerFrame and maxDeliverPerFrame bound the steady-state pipeline's
// per-frame work (spec.md §4.4.4 steps 3 and 5).
const (
	maxRecvPerFrame    = 64
	maxDeliverPerFrame = 64
)

// socketErrorCheckFrames is how often SO_ERROR is polled on the socket
// (spec.md §4.4.4: "once every 10 frames").
const socketErrorCheckFrames = 10

// sendAllTimeout is send_all's total retry budget (spec.md §4.4.6).
const sendAllTimeout = 2 * time.Second

// Stats is a supplemented diagnostics accessor (SPEC_FULL.md §D.1/§D.3).
type Stats struct {
	PacketsSent    uint64
	PacketsRecv    uint64
	HeartbeatsSent uint64
	QueueDrops     uint64
}

// Session is the GBA Link transport: one process-wide instance bridges one
// host and one client (spec.md §3.1, §4.4).
type Session struct {
	mu sync.Mutex

	phase Phase
	role  Role

	conn     net.Conn
	listener net.Listener

	stream streamBuffer
	queue  pendingQueue

	lastPacketSent     time.Time
	lastPacketReceived time.Time
	frameCounter       int

	localLinkMode   string
	needsReload     bool
	pendingLinkMode string
	clientLinkMode  string

	statusMessage string
	stats         Stats

	cb        core.Callbacks
	disc      *discovery.Host
	fields    discovery.FieldsFunc
	emitter   *logging.Emitter
	sessionID string

	pendingHostConnected    atomic.Bool
	pendingDisconnectNotify atomic.Bool
	disconnectReason        atomic.Value // string

	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewSession constructs an idle (Off) GBA Link session. localLinkMode is
// this side's current RFU link-mode core option, used to detect a mismatch
// during the client handshake (spec.md §4.4.9).
func NewSession(cb core.Callbacks, localLinkMode string, emitter *logging.Emitter, sessionID string) *Session {
	return &Session{
		phase:         Off,
		statusMessage: "Off",
		cb:            core.Fill(cb),
		localLinkMode: localLinkMode,
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

// Status returns a short human-readable status string for the UI.
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
	stats := s.stats
	stats.QueueDrops = s.queue.DroppedTotal
	return stats
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

// StartHost opens a listen socket and discovery beacon, then spawns a
// listener goroutine to accept one client and run the host handshake
// (spec.md §4.4.2, §4.4.3).
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

	disc, err := discovery.NewHost(discovery.GBALink, fields)
	if err != nil {
		ln.Close()
		return err
	}

	s.mu.Lock()
	s.role = RoleHost
	s.listener = ln
	s.disc = disc
	s.fields = fields
	s.closed.Store(false)
	s.setPhase(Waiting, fmt.Sprintf("Hosting on port %d", port))
	s.mu.Unlock()

	s.wg.Add(2)
	go s.acceptLoop()
	go s.broadcastLoop()
	return nil
}

func (s *Session) acceptLoop() {
	defer s.wg.Done()
	conn, err := s.listener.Accept()
	if err != nil {
		return
	}

	tcpConn, _ := conn.(*net.TCPConn)
	if tcpConn != nil {
		_ = netcommon.ConfigureTCPSocket(tcpConn, netcommon.GBALinkTCPConfig())
	}

	s.mu.Lock()
	s.conn = conn
	if s.disc != nil {
		s.disc.Close()
		s.disc = nil
	}
	s.setPhase(Connecting, fmt.Sprintf("Client connecting: %s", conn.RemoteAddr()))
	s.mu.Unlock()

	if err := s.hostHandshake(conn); err != nil {
		s.mu.Lock()
		s.teardownLocked(err.Error())
		s.mu.Unlock()
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

// hostHandshake waits up to 5s for the client's READY, then sends its own
// READY carrying localLinkMode, and publishes pendingHostConnected for the
// main thread's Poll to observe (spec.md §4.4.3, §9 "listener thread ->
// core callback").
func (s *Session) hostHandshake(conn net.Conn) error {
	var gotReady bool
	for i := 0; i < handshakePolls && !gotReady; i++ {
		conn.SetReadDeadline(time.Now().Add(handshakePollInterval))
		cmd, _, _, err := readPacket(conn)
		if err == nil && cmd == CmdReady {
			gotReady = true
			break
		}
		if err != nil && !isTimeout(err) {
			return errx.Wrap(ErrHandshakeTimeout, err)
		}
	}
	conn.SetReadDeadline(time.Time{})
	if !gotReady {
		conn.Write(Packet{Cmd: CmdDisconnect, ClientID: ClientHost}.Encode())
		return ErrHandshakeTimeout
	}

	if _, err := conn.Write(EncodeReady(ClientHost, s.localLinkMode)); err != nil {
		return errx.Wrap(ErrHandshakeTimeout, err)
	}

	now := time.Now()
	s.mu.Lock()
	s.lastPacketSent, s.lastPacketReceived = now, now
	s.setPhase(Connected, "Client connected")
	s.mu.Unlock()

	s.pendingHostConnected.Store(true)
	return nil
}

// Connect dials a host and runs the client handshake (spec.md §4.4.2,
// §4.4.3 steps 3-4). It is expected to be called from the main/UI thread,
// which is why — unlike the host's deferred pendingHostConnected — it may
// invoke core callbacks directly on success.
//
// If the host's link mode differs from localLinkMode, Connect returns
// ErrNeedsReload; PendingLinkMode/ClientLinkMode report the two values so
// the UI can apply or cancel (spec.md §4.4.9).
func (s *Session) Connect(hostAddr string) error {
	s.mu.Lock()
	if s.phase != Off {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.role = RoleClient
	s.setPhase(Connecting, fmt.Sprintf("Connecting to %s", hostAddr))
	s.closed.Store(false)
	s.mu.Unlock()

	conn, err := net.DialTimeout("tcp4", hostAddr, handshakeTimeout)
	if err != nil {
		s.mu.Lock()
		s.setPhase(Off, "Connect failed")
		s.mu.Unlock()
		return errx.Wrap(ErrDialFailed, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = netcommon.ConfigureTCPSocket(tcpConn, netcommon.GBALinkTCPConfig())
	}

	if _, err := conn.Write(Packet{Cmd: CmdReady, ClientID: ClientPeer}.Encode()); err != nil {
		conn.Close()
		s.mu.Lock()
		s.setPhase(Off, "Connect failed")
		s.mu.Unlock()
		return errx.Wrap(ErrDialFailed, err)
	}

	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	cmd, payload, _, err := readPacketPayload(conn)
	conn.SetReadDeadline(time.Time{})
	if err != nil || cmd != CmdReady {
		conn.Close()
		s.mu.Lock()
		s.setPhase(Error, "Handshake timeout")
		s.mu.Unlock()
		return errx.Wrap(ErrHandshakeTimeout, err)
	}

	hostMode := DecodeReadyLinkMode(payload)

	s.mu.Lock()
	s.conn = conn
	now := time.Now()
	s.lastPacketSent, s.lastPacketReceived = now, now

	if hostMode != s.localLinkMode {
		s.needsReload = true
		s.pendingLinkMode = hostMode
		s.clientLinkMode = s.localLinkMode
		s.setPhase(Connecting, "Link mode mismatch")
		s.mu.Unlock()
		s.emit(logging.EventNeedsReload, "link mode mismatch", nil)
		return ErrNeedsReload
	}

	s.setPhase(Connected, "Connected to host")
	s.mu.Unlock()

	s.cb.Start(core.PeerHost, s.Send, func() ([]byte, bool) { return nil, false })
	s.cb.Connected(core.PeerHost)
	return nil
}

// PendingLinkMode and ClientLinkMode report the NEEDS_RELOAD fields set by
// a mismatched Connect (spec.md §4.4.9).
func (s *Session) PendingLinkMode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLinkMode
}

func (s *Session) ClientLinkMode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientLinkMode
}

// NeedsReload reports whether the last Connect ended in a link-mode
// mismatch.
func (s *Session) NeedsReload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsReload
}

// Poll runs one steady-state pipeline tick (spec.md §4.4.4). Call once per
// emulator frame.
func (s *Session) Poll() error {
	if s.pendingHostConnected.CompareAndSwap(true, false) {
		s.cb.Start(core.PeerClient, s.Send, func() ([]byte, bool) { return nil, false })
		s.cb.Connected(core.PeerClient)
	}

	s.mu.Lock()
	if s.phase != Connected {
		s.mu.Unlock()
		return nil
	}
	conn := s.conn
	role := s.role
	now := time.Now()

	if role == RoleHost && now.Sub(s.lastPacketSent) >= heartbeatInterval {
		s.sendLocked(Packet{Cmd: CmdHeartbeat, ClientID: ClientHost})
		s.stats.HeartbeatsSent++
	}

	s.recvDrainLocked(conn, now)
	s.frameCounter++
	checkSocket := s.frameCounter%socketErrorCheckFrames == 0
	idleElapsed := now.Sub(s.lastPacketReceived)
	s.mu.Unlock()

	if s.pendingDisconnectNotify.CompareAndSwap(true, false) {
		reason, _ := s.disconnectReason.Load().(string)
		peer := core.PeerClient
		if role == RoleClient {
			peer = core.PeerHost
		}
		s.cb.Disconnected(peer)
		s.mu.Lock()
		s.teardownAfterNotifyLocked(reason)
		s.mu.Unlock()
		return ErrPeerDisconnected
	}

	if checkSocket {
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			if sockErr := netcommon.SocketError(tcpConn); sockErr != nil {
				s.Disconnect()
				return errx.Wrap(ErrPeerDisconnected, sockErr)
			}
		}
	}

	if idleElapsed > idleTimeout {
		s.Disconnect()
		return ErrIdleTimeout
	}

	s.deliverToCore()
	return nil
}

// recvDrainLocked implements spec.md §4.4.4 step 3 and §4.4.7: compact if
// needed, read available bytes, parse up to maxRecvPerFrame packets,
// dispatch each.
func (s *Session) recvDrainLocked(conn net.Conn, now time.Time) {
	if conn == nil {
		return
	}

	// Read no more than the stream buffer's free tail can take, so bytes
	// that do not fit stay in the socket until a later poll.
	s.stream.maybeCompact()
	conn.SetReadDeadline(now.Add(time.Millisecond))
	tmp := make([]byte, min(s.stream.freeTail(), 4096))
	n, err := conn.Read(tmp)
	conn.SetReadDeadline(time.Time{})
	if n > 0 {
		s.stream.appendFrom(tmp[:n])
	}
	if err != nil && !isTimeout(err) {
		s.pendingDisconnectNotify.Store(true)
		s.disconnectReason.Store("Remote disconnected")
		return
	}

	for i := 0; i < maxRecvPerFrame; i++ {
		pkt, ok, perr := s.stream.parseOne()
		if perr != nil {
			s.emit(logging.EventProtocolError, "oversize frame, buffer reset", nil)
			continue
		}
		if !ok {
			break
		}
		s.lastPacketReceived = now
		s.stats.PacketsRecv++
		s.dispatchLocked(pkt)
	}
}

func (s *Session) dispatchLocked(pkt Packet) {
	switch pkt.Cmd {
	case CmdSIOData:
		if !s.queue.push(pkt.ClientID, pkt.Payload) {
			s.emit(logging.EventQueueOverflow, "pending queue full, packet dropped", logging.QueueOverflowData{
				DroppedTotal: s.queue.DroppedTotal,
			})
		}
	case CmdDisconnect:
		s.pendingDisconnectNotify.Store(true)
		s.disconnectReason.Store("Peer sent DISCONNECT")
	case CmdReady:
		// Handshake idempotence (spec.md §8.2): a second READY during
		// Connected only refreshes the receive timestamp, handled above.
	case CmdHeartbeat, CmdPing, CmdPong:
		// keepalive/reserved: timestamp already updated.
	}
}

// deliverToCore drains the pending queue into the core's receive callback,
// up to maxDeliverPerFrame entries (spec.md §4.4.4 step 5).
func (s *Session) deliverToCore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < maxDeliverPerFrame; i++ {
		clientID, payload, ok := s.queue.pop()
		if !ok {
			break
		}
		peer := core.PeerHost
		if clientID == ClientPeer {
			peer = core.PeerClient
		}
		s.mu.Unlock()
		s.cb.Receive(peer, payload)
		s.mu.Lock()
	}
}

// teardownAfterNotifyLocked finishes a disconnect whose core notification
// already ran outside the mutex.
func (s *Session) teardownAfterNotifyLocked(reason string) {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.role == RoleHost {
		s.returnToWaitingLocked()
	} else {
		s.setPhase(Off, reason)
	}
}

// returnToWaitingLocked reopens discovery broadcast after a client departs
// (spec.md §4.4.2, §8.4 scenario 6).
func (s *Session) returnToWaitingLocked() {
	if s.listener == nil {
		return
	}
	disc, err := discovery.NewHost(discovery.GBALink, s.fields)
	if err == nil {
		s.disc = disc
	}
	s.setPhase(Waiting, "Waiting for client")
	s.wg.Add(2)
	go s.acceptLoop()
	go s.broadcastLoop()
}

// Send implements core.SendFunc: it frames payload as SIO_DATA and writes
// it via send_all's deadlock-avoidance retry loop (spec.md §4.4.6).
func (s *Session) Send(_ core.PeerID, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return ErrProtocolError
	}
	id := ClientHost
	s.mu.Lock()
	if s.role == RoleClient {
		id = ClientPeer
	}
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return ErrNotActive
	}
	return s.sendAll(conn, Packet{Cmd: CmdSIOData, ClientID: id, Payload: payload}.Encode())
}

// sendAll retries on a write-deadline timeout for up to sendAllTimeout,
// draining the receive side on each retry so the peer can make progress on
// its own send even while ours is blocked (spec.md §4.4.6 "critical
// deadlock avoidance").
func (s *Session) sendAll(conn net.Conn, buf []byte) error {
	deadline := time.Now().Add(sendAllTimeout)
	written := 0
	for written < len(buf) {
		conn.SetWriteDeadline(time.Now().Add(50 * time.Millisecond))
		n, err := conn.Write(buf[written:])
		written += n
		if err == nil {
			continue
		}
		if isTimeout(err) {
			if time.Now().After(deadline) {
				return ErrSendTimeout
			}
			s.mu.Lock()
			s.recvDrainLocked(conn, time.Now())
			s.mu.Unlock()
			continue
		}
		return errx.Wrap(ErrPeerDisconnected, err)
	}
	conn.SetWriteDeadline(time.Time{})

	s.mu.Lock()
	if s.conn == conn {
		s.lastPacketSent = time.Now()
		s.stats.PacketsSent++
	}
	s.mu.Unlock()
	return nil
}

func (s *Session) sendLocked(pkt Packet) {
	if s.conn == nil {
		return
	}
	if _, err := s.conn.Write(pkt.Encode()); err == nil {
		s.lastPacketSent = time.Now()
		s.stats.PacketsSent++
	}
}

// Disconnect performs an orderly shutdown; a no-op when already Off
// (spec.md §8.2 "disconnect idempotence").
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.phase == Off {
		s.mu.Unlock()
		return
	}
	if s.conn != nil {
		s.sendLocked(Packet{Cmd: CmdDisconnect})
	}
	peer := core.PeerClient
	if s.role == RoleClient {
		peer = core.PeerHost
	}
	s.mu.Unlock()

	s.cb.Disconnected(peer)
	s.cb.Stop()

	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.needsReload = false
	s.pendingLinkMode, s.clientLinkMode = "", ""
	s.setPhase(Off, "Disconnected")
	s.mu.Unlock()
}

// teardownLocked drops a connection whose host handshake failed. It runs on
// the accept goroutine, so it invokes no core callbacks; the host returns to
// Waiting unless Close has already released the listener.
func (s *Session) teardownLocked(status string) {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.listener != nil && !s.closed.Load() {
		s.returnToWaitingLocked()
		return
	}
	s.setPhase(Off, status)
}

// Close tears down a host's listener and any discovery sockets.
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

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// readPacket reads one framed header-only packet (used during handshake,
// where payload interpretation is handled by the caller).
func readPacket(conn net.Conn) (Command, uint16, ClientID, error) {
	cmd, payload, clientID, err := readPacketPayload(conn)
	return cmd, uint16(len(payload)), clientID, err
}

func readPacketPayload(conn net.Conn) (Command, []byte, ClientID, error) {
	hdr := make([]byte, HeaderSize)
	if err := readFull(conn, hdr); err != nil {
		return 0, nil, 0, err
	}
	cmd, size, clientID, err := DecodeHeader(hdr)
	if err != nil {
		return 0, nil, 0, err
	}
	if size == 0 {
		return cmd, nil, clientID, nil
	}
	payload := make([]byte, size)
	if err := readFull(conn, payload); err != nil {
		return 0, nil, 0, err
	}
	return cmd, payload, clientID, nil
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
