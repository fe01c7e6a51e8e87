package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefault_MatchesSpecPortsAndTimeouts(t *testing.T) {
	d := Default()
	assert.Equal(t, 55435, d.Netplay.TCPPort)
	assert.Equal(t, 55436, d.Netplay.DiscoveryPort)
	assert.Equal(t, 180, d.Netplay.StallTimeoutFrames)

	assert.Equal(t, 55437, d.GBALink.TCPPort)
	assert.Equal(t, 55438, d.GBALink.DiscoveryPort)
	assert.Equal(t, 5*time.Second, d.GBALink.HandshakeTimeout)
	assert.Equal(t, 60*time.Second, d.GBALink.IdleTimeout)
	assert.Equal(t, 32*1024, d.GBALink.BufferSize)

	assert.Equal(t, 56400, d.GBLink.TCPPort)
	assert.Equal(t, 56421, d.GBLink.DiscoveryPort)

	assert.Equal(t, "NextUI-", d.Session.HotspotSSIDPrefix)
}

func TestFromViper_OverridesDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("netplay-tcp-port", 60000)
	viper.Set("hotspot-ssid-prefix", "TEST-")

	cfg := FromViper()
	assert.Equal(t, 60000, cfg.Netplay.TCPPort)
	assert.Equal(t, "TEST-", cfg.Session.HotspotSSIDPrefix)
	// Unset values still fall back to the spec defaults.
	assert.Equal(t, 55438, cfg.GBALink.DiscoveryPort)
}
