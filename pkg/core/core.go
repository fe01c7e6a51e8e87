// Package core describes the emulator-core side of a link transport: the
// callbacks a transport invokes as peers connect, send data, and disconnect
// (spec.md §6.3, §9 "Cyclic callbacks"). The transport holds a Callbacks
// value; it never holds a pointer back into whatever owns the core, which
// keeps the two sides free of cyclic ownership.
package core

// PeerID distinguishes the two sides of a link. Host is always 0, the
// client always 1 (spec.md §3.2's client_id field).
type PeerID uint16

const (
	PeerHost   PeerID = 0
	PeerClient PeerID = 1
)

// SendFunc hands a transport-framed payload to the peer named by id. PollFunc
// lets the core pull any packets the transport has queued for immediate
// delivery outside the regular receive cadence; transports that deliver
// everything through Receive may leave this a no-op.
type SendFunc func(id PeerID, payload []byte) error
type PollFunc func() ([]byte, bool)

// Callbacks is the quadruple a core registers with a transport. GBA Link
// invokes Start once per connection, at handshake completion, with bridges
// the core can use to push data out; Netplay and GB Link never invoke it.
// Connected/Disconnected/Stop are invoked on phase
// transitions, always off the listener thread.
type Callbacks struct {
	Start        func(id PeerID, send SendFunc, poll PollFunc)
	Receive      func(id PeerID, payload []byte)
	Connected    func(id PeerID)
	Disconnected func(id PeerID)
	Stop         func()
}

// NoopCallbacks is useful in tests and for transports run headless (e.g. a
// discovery-only scan) where no core is attached yet.
var NoopCallbacks = Callbacks{
	Start:        func(PeerID, SendFunc, PollFunc) {},
	Receive:      func(PeerID, []byte) {},
	Connected:    func(PeerID) {},
	Disconnected: func(PeerID) {},
	Stop:         func() {},
}

// fill replaces any nil field of cb with the corresponding NoopCallbacks
// field, so transports can invoke every callback unconditionally.
func fill(cb Callbacks) Callbacks {
	if cb.Start == nil {
		cb.Start = NoopCallbacks.Start
	}
	if cb.Receive == nil {
		cb.Receive = NoopCallbacks.Receive
	}
	if cb.Connected == nil {
		cb.Connected = NoopCallbacks.Connected
	}
	if cb.Disconnected == nil {
		cb.Disconnected = NoopCallbacks.Disconnected
	}
	if cb.Stop == nil {
		cb.Stop = NoopCallbacks.Stop
	}
	return cb
}

// Fill returns cb with nil fields replaced by no-ops.
func Fill(cb Callbacks) Callbacks {
	return fill(cb)
}

// OptionWriter is the narrow slice of core control a GB Link orchestrator
// needs (spec.md §4.5): batched option writes followed by a forced
// check_variables pass.
type OptionWriter interface {
	BeginOptionBatch()
	SetOption(name, value string)
	EndOptionBatch()
	ForceOptionUpdate()
}

// LogLineHook lets the GB Link orchestrator observe the core's stdout for
// connection-state phrases (spec.md §4.5); it has no structured connection
// API of its own.
type LogLineHook func(line string)

// StateSerializer is the Netplay savestate contract (spec.md §4.3.6): the
// host serializes, the client deserializes and reports its own size so a
// mismatch can be detected.
type StateSerializer interface {
	SerializeState() ([]byte, error)
	DeserializeState([]byte) error
	StateSize() (int, error)
}
