package gblink

import "errors"

var (
	ErrAlreadyActive    = errors.New("gblink: session already active")
	ErrNotActive        = errors.New("gblink: session not active")
	// ErrInvalidHostOctet resolves spec.md §9's open question: rather than
	// silently truncating or aborting the digit-option encode as the
	// original source does, an out-of-range or malformed IPv4 octet is
	// surfaced to the caller.
	ErrInvalidHostOctet = errors.New("gblink: invalid host IPv4 octet")
)
