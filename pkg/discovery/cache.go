package discovery

import (
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/nextui-games/linkrt/internal/errx"
	"github.com/nextui-games/linkrt/pkg/netcommon"
)

// CacheEntry is one previously-seen host, persisted between scans so the UI
// can show a "last seen" entry before the first beacon of a new scan
// arrives (spec.md does not ask for this; it is a supplemented feature, see
// SPEC_FULL.md §B). Scanner itself does not read or write the cache.
type CacheEntry struct {
	IP       string    `cbor:"ip"`
	GameName string    `cbor:"game_name"`
	GameCRC  uint32    `cbor:"game_crc"`
	TCPPort  uint16    `cbor:"tcp_port"`
	LinkMode string    `cbor:"link_mode"`
	LastSeen time.Time `cbor:"last_seen"`
}

// DefaultCacheEntries bounds the on-disk cache so a LAN that churns through
// many transient hosts doesn't grow the file unbounded.
const DefaultCacheEntries = 16

// LoadCache reads a CBOR-encoded host cache from path. A missing file is
// not an error; it returns an empty cache.
func LoadCache(path string) ([]CacheEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errx.Wrap(ErrCacheLoad, err)
	}
	var entries []CacheEntry
	if err := cbor.Unmarshal(data, &entries); err != nil {
		return nil, errx.Wrap(ErrCacheLoad, err)
	}
	return entries, nil
}

// SaveCache writes entries to path as CBOR.
func SaveCache(path string, entries []CacheEntry) error {
	data, err := cbor.Marshal(entries)
	if err != nil {
		return errx.Wrap(ErrCacheSave, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errx.Wrap(ErrCacheSave, err)
	}
	return nil
}

// MergeSeen folds freshly discovered hosts into cache, updating LastSeen for
// hosts already present and appending new ones, then trims to maxEntries by
// most-recently-seen.
func MergeSeen(cache []CacheEntry, hosts []netcommon.HostEntry, now time.Time, maxEntries int) []CacheEntry {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}

	byIP := make(map[string]int, len(cache))
	for i, c := range cache {
		byIP[c.IP] = i
	}

	for _, h := range hosts {
		entry := CacheEntry{
			IP:       h.IP,
			GameName: h.GameName,
			GameCRC:  h.GameCRC,
			TCPPort:  h.TCPPort,
			LinkMode: h.LinkMode,
			LastSeen: now,
		}
		if i, ok := byIP[h.IP]; ok {
			cache[i] = entry
		} else {
			cache = append(cache, entry)
			byIP[h.IP] = len(cache) - 1
		}
	}

	if len(cache) <= maxEntries {
		return cache
	}

	// Keep the maxEntries most recently seen.
	sorted := make([]CacheEntry, len(cache))
	copy(sorted, cache)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].LastSeen.After(sorted[j-1].LastSeen); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted[:maxEntries]
}
