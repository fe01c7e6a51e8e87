package netcommon

import "errors"

var (
	ErrListenFailed       = errors.New("netcommon: listen socket failed")
	ErrBroadcastSocket    = errors.New("netcommon: broadcast socket failed")
	ErrDiscoverySocket    = errors.New("netcommon: discovery listen socket failed")
	ErrSocketOptionFailed = errors.New("netcommon: setsockopt failed")
	ErrNotTCPConn         = errors.New("netcommon: connection is not a TCP connection")
	ErrSocketError        = errors.New("netcommon: socket reported pending error")
)
