package netcommon

import (
	"net"
	"strings"
)

// LocalIPv4 walks all non-loopback IPv4 interfaces and returns the first
// whose name begins with "wlan", falling back to the last non-loopback
// IPv4 address found (matching network_common.c's interface walk, which
// keeps overwriting its result and only breaks early on a wlan match), or
// "0.0.0.0" if none is up. Mirrors the handheld's preference for its WiFi
// interface over any other (e.g. USB-ethernet debug adapters) when both
// are present.
func LocalIPv4() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "0.0.0.0"
	}

	var fallback string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ip := ipFromAddr(addr)
			if ip == nil || ip.To4() == nil {
				continue
			}
			if strings.HasPrefix(iface.Name, "wlan") {
				return ip.String()
			}
			fallback = ip.String()
		}
	}

	if fallback != "" {
		return fallback
	}
	return "0.0.0.0"
}

func ipFromAddr(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	default:
		return nil
	}
}

// HasConnection reports whether the device currently has a usable IPv4
// address, i.e. LocalIPv4 returns something other than "0.0.0.0".
func HasConnection() bool {
	return LocalIPv4() != "0.0.0.0"
}
