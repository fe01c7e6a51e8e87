package gbalink

import "errors"

var (
	ErrAlreadyActive    = errors.New("gbalink: session already active")
	ErrNotActive        = errors.New("gbalink: session not active")
	ErrListenFailed     = errors.New("gbalink: listen failed")
	ErrDialFailed       = errors.New("gbalink: dial failed")
	ErrHandshakeTimeout = errors.New("gbalink: handshake timeout")
	ErrShortHeader      = errors.New("gbalink: packet shorter than header")
	ErrProtocolError    = errors.New("gbalink: protocol error, oversize frame")
	ErrPeerDisconnected = errors.New("gbalink: peer disconnected")
	ErrIdleTimeout      = errors.New("gbalink: idle timeout")
	ErrSendTimeout      = errors.New("gbalink: send buffer full, send timed out")
	ErrNeedsReload      = errors.New("gbalink: link-mode mismatch, reload required")
)
