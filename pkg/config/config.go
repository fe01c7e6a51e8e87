// Package config centralises every tunable named across pkg/netcommon,
// pkg/discovery, pkg/netplay, pkg/gbalink, pkg/gblink, and pkg/session
// (ports, timeouts, buffer sizes, discovery interval, hotspot SSID prefix)
// behind one struct that cmd/linkd binds to cobra flags and viper keys
// (spec.md §6.1, §4.1). cmd/linkd reads only the TCP ports and HistoryPath
// from it; the other packages use their own built-in constants.
// StateAckTimeout, HeartbeatInterval, ScanPollInterval and DHCPPollInterval
// have no flag and always take their defaults.
package config

import "time"

// Netplay holds the Netplay transport's port and timing defaults
// (spec.md §6.1, §4.3).
type Netplay struct {
	TCPPort            int
	DiscoveryPort      int
	StallTimeoutFrames int
	StateAckTimeout    time.Duration
}

// GBALink holds the GBA Link transport's port and timing defaults
// (spec.md §6.1, §4.4).
type GBALink struct {
	TCPPort           int
	DiscoveryPort     int
	HandshakeTimeout  time.Duration
	HeartbeatInterval time.Duration
	IdleTimeout       time.Duration
	BufferSize        int
}

// GBLink holds the GB Link orchestrator's port defaults (spec.md §6.1, §4.5).
type GBLink struct {
	TCPPort       int
	DiscoveryPort int
}

// Discovery holds parameters shared by all three transports' discovery
// beacons (spec.md §4.2).
type Discovery struct {
	BroadcastInterval time.Duration
	ScanRetries       int
	ScanPollInterval  time.Duration
}

// Session holds session-lifecycle defaults (spec.md §4.6).
type Session struct {
	HotspotSSIDPrefix string
	DHCPWaitTimeout   time.Duration
	DHCPPollInterval  time.Duration
	HistoryPath       string
}

// Config is the full set of tunables a linkd process reads at startup.
type Config struct {
	Netplay   Netplay
	GBALink   GBALink
	GBLink    GBLink
	Discovery Discovery
	Session   Session
}

// Default returns the spec-mandated defaults (spec.md §6.1, §4.1, §4.3,
// §4.4.8, §5). cmd/linkd seeds viper with these before binding flags, so an
// unset flag/env/config-file value still resolves to the spec's default.
func Default() Config {
	return Config{
		Netplay: Netplay{
			TCPPort:            55435,
			DiscoveryPort:      55436,
			StallTimeoutFrames: 180,
			StateAckTimeout:    10 * time.Second,
		},
		GBALink: GBALink{
			TCPPort:           55437,
			DiscoveryPort:     55438,
			HandshakeTimeout:  5 * time.Second,
			HeartbeatInterval: 500 * time.Millisecond,
			IdleTimeout:       60 * time.Second,
			BufferSize:        32 * 1024,
		},
		GBLink: GBLink{
			TCPPort:       56400,
			DiscoveryPort: 56421,
		},
		Discovery: Discovery{
			BroadcastInterval: 500 * time.Millisecond,
			ScanRetries:       3,
			ScanPollInterval:  100 * time.Millisecond,
		},
		Session: Session{
			HotspotSSIDPrefix: "NextUI-",
			DHCPWaitTimeout:   10 * time.Second,
			DHCPPollInterval:  500 * time.Millisecond,
			HistoryPath:       "linkd-history.db",
		},
	}
}
