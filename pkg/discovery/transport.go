// Package discovery implements the UDP broadcast/response (and, for GBA
// Link, unicast query) protocol spec.md §4.2 describes: a single shared
// design distinguished per transport only by magic values and ports
// (spec.md §6.1).
package discovery

// Transport names one of the three link transports' discovery parameters.
type Transport struct {
	Name            string
	QueryMagic      uint32 // 0 when the transport has no unicast query (Netplay, GB Link)
	ResponseMagic   uint32
	DiscoveryPort   int
	TCPPort         int
	ProtocolVersion uint32
}

func fourCC(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}

// Transport parameter tables, spec.md §6.1.
var (
	Netplay = Transport{
		Name:            "netplay",
		ResponseMagic:   fourCC('N', 'X', 'D', 'R'),
		DiscoveryPort:   55436,
		TCPPort:         55435,
		ProtocolVersion: 2,
	}

	GBALink = Transport{
		Name:            "gbalink",
		QueryMagic:      fourCC('G', 'B', 'D', 'Q'),
		ResponseMagic:   fourCC('G', 'B', 'D', 'R'),
		DiscoveryPort:   55438,
		TCPPort:         55437,
		ProtocolVersion: 1,
	}

	GBLink = Transport{
		Name:            "gblink",
		ResponseMagic:   fourCC('G', 'B', 'L', 'R'),
		DiscoveryPort:   56421,
		TCPPort:         56400,
		ProtocolVersion: 1,
	}
)
