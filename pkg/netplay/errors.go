package netplay

import "errors"

var (
	ErrAlreadyActive     = errors.New("netplay: session already active")
	ErrNotActive         = errors.New("netplay: session not active")
	ErrListenFailed      = errors.New("netplay: listen failed")
	ErrAcceptFailed      = errors.New("netplay: accept failed")
	ErrDialFailed        = errors.New("netplay: dial failed")
	ErrHandshakeTimeout  = errors.New("netplay: handshake timeout")
	ErrHandshakeRejected = errors.New("netplay: handshake rejected")
	ErrStateSizeMismatch = errors.New("netplay: savestate size mismatch")
	ErrStateSyncFailed   = errors.New("netplay: state synchronization failed")
	ErrShortHeader       = errors.New("netplay: packet shorter than header")
	ErrMalformedPacket   = errors.New("netplay: malformed packet")
	ErrPeerDisconnected  = errors.New("netplay: peer disconnected")
	ErrStalled           = errors.New("netplay: stalled")
	ErrTimedOut          = errors.New("netplay: stall timeout, peer considered lost")
)
