package discovery

import "errors"

var (
	ErrHostClosed    = errors.New("discovery: host already closed")
	ErrScannerClosed = errors.New("discovery: scanner already closed")
	ErrQueryTimeout  = errors.New("discovery: unicast query timed out")
	ErrCacheLoad     = errors.New("discovery: cache load failed")
	ErrCacheSave     = errors.New("discovery: cache save failed")
)
