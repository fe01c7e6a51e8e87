package netcommon

import "math/rand"

// HotspotSSIDPrefix is the unified prefix used by all three transports when
// a peer creates its own WiFi access point (spec.md §6.2).
const HotspotSSIDPrefix = "NextUI-"

// ssidAlphabet is the 32-character alphabet A-Z minus {I,O} plus 2-9, chosen
// to avoid characters easily confused with digits on a handheld's tiny
// screen.
const ssidAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateHotspotSSID seeds a deterministic PRNG with seed and appends four
// characters from ssidAlphabet to prefix, e.g. "NextUI-Q7K4". Deterministic
// so that re-deriving the SSID from the same seed (e.g. a session ID) always
// reproduces it, useful for reconnect-to-last-hotspot flows.
func GenerateHotspotSSID(prefix string, seed uint32) string {
	r := rand.New(rand.NewSource(int64(seed)))
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = ssidAlphabet[r.Intn(len(ssidAlphabet))]
	}
	return prefix + string(suffix)
}
