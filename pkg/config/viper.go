package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RegisterFlags adds every Config flag to cmd and binds each to its viper
// key, the same per-flag `cmd.Flags().X` + `viper.BindPFlag` pairing
// cmd/matchlock/cmd_run.go uses for its own flags. cmd/linkd calls this
// once on its root command so every subcommand inherits the same
// flag/env/config-file layering.
func RegisterFlags(cmd *cobra.Command) {
	d := Default()
	flags := cmd.PersistentFlags()

	flags.Int("netplay-tcp-port", d.Netplay.TCPPort, "Netplay TCP port")
	flags.Int("netplay-discovery-port", d.Netplay.DiscoveryPort, "Netplay discovery UDP port")
	flags.Int("netplay-stall-frames", d.Netplay.StallTimeoutFrames, "Netplay stall-to-disconnect threshold, in frames")

	flags.Int("gbalink-tcp-port", d.GBALink.TCPPort, "GBA Link TCP port")
	flags.Int("gbalink-discovery-port", d.GBALink.DiscoveryPort, "GBA Link discovery UDP port")
	flags.Duration("gbalink-handshake-timeout", d.GBALink.HandshakeTimeout, "GBA Link handshake timeout")
	flags.Duration("gbalink-idle-timeout", d.GBALink.IdleTimeout, "GBA Link idle disconnect timeout")
	flags.Int("gbalink-buffer-size", d.GBALink.BufferSize, "GBA Link TCP socket buffer size in bytes")

	flags.Int("gblink-tcp-port", d.GBLink.TCPPort, "GB Link TCP port")
	flags.Int("gblink-discovery-port", d.GBLink.DiscoveryPort, "GB Link discovery UDP port")

	flags.Duration("discovery-broadcast-interval", d.Discovery.BroadcastInterval, "discovery beacon broadcast interval")
	flags.Int("discovery-scan-retries", d.Discovery.ScanRetries, "client-side discovery scan retry count")

	flags.String("hotspot-ssid-prefix", d.Session.HotspotSSIDPrefix, "hotspot SSID prefix")
	flags.Duration("dhcp-wait-timeout", d.Session.DHCPWaitTimeout, "hotspot join DHCP wait timeout")
	flags.String("history-path", d.Session.HistoryPath, "path to the session history sqlite database")

	for _, name := range []string{
		"netplay-tcp-port", "netplay-discovery-port", "netplay-stall-frames",
		"gbalink-tcp-port", "gbalink-discovery-port", "gbalink-handshake-timeout",
		"gbalink-idle-timeout", "gbalink-buffer-size",
		"gblink-tcp-port", "gblink-discovery-port",
		"discovery-broadcast-interval", "discovery-scan-retries",
		"hotspot-ssid-prefix", "dhcp-wait-timeout", "history-path",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}

// FromViper builds a Config from whatever viper has resolved (flag, env,
// or config file, in that precedence order), falling back to Default for
// anything unset.
func FromViper() Config {
	d := Default()
	for key, value := range map[string]any{
		"netplay-tcp-port":       d.Netplay.TCPPort,
		"netplay-discovery-port": d.Netplay.DiscoveryPort,
		"netplay-stall-frames":   d.Netplay.StallTimeoutFrames,
		"gbalink-tcp-port":       d.GBALink.TCPPort,
		"gbalink-discovery-port": d.GBALink.DiscoveryPort,
		"gbalink-buffer-size":    d.GBALink.BufferSize,
		"gblink-tcp-port":        d.GBLink.TCPPort,
		"gblink-discovery-port":  d.GBLink.DiscoveryPort,
		"discovery-scan-retries": d.Discovery.ScanRetries,
		"hotspot-ssid-prefix":    d.Session.HotspotSSIDPrefix,
		"history-path":           d.Session.HistoryPath,
	} {
		viper.SetDefault(key, value)
	}
	return Config{
		Netplay: Netplay{
			TCPPort:            viper.GetInt("netplay-tcp-port"),
			DiscoveryPort:      viper.GetInt("netplay-discovery-port"),
			StallTimeoutFrames: viper.GetInt("netplay-stall-frames"),
			StateAckTimeout:    d.Netplay.StateAckTimeout,
		},
		GBALink: GBALink{
			TCPPort:           viper.GetInt("gbalink-tcp-port"),
			DiscoveryPort:     viper.GetInt("gbalink-discovery-port"),
			HandshakeTimeout:  viperDurationOr(d.GBALink.HandshakeTimeout, "gbalink-handshake-timeout"),
			HeartbeatInterval: d.GBALink.HeartbeatInterval,
			IdleTimeout:       viperDurationOr(d.GBALink.IdleTimeout, "gbalink-idle-timeout"),
			BufferSize:        viper.GetInt("gbalink-buffer-size"),
		},
		GBLink: GBLink{
			TCPPort:       viper.GetInt("gblink-tcp-port"),
			DiscoveryPort: viper.GetInt("gblink-discovery-port"),
		},
		Discovery: Discovery{
			BroadcastInterval: viperDurationOr(d.Discovery.BroadcastInterval, "discovery-broadcast-interval"),
			ScanRetries:       viper.GetInt("discovery-scan-retries"),
			ScanPollInterval:  d.Discovery.ScanPollInterval,
		},
		Session: Session{
			HotspotSSIDPrefix: viper.GetString("hotspot-ssid-prefix"),
			DHCPWaitTimeout:   viperDurationOr(d.Session.DHCPWaitTimeout, "dhcp-wait-timeout"),
			DHCPPollInterval:  d.Session.DHCPPollInterval,
			HistoryPath:       viper.GetString("history-path"),
		},
	}
}

func viperDurationOr(fallback time.Duration, key string) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}
