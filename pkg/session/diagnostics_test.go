package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderHotspotCommand_QuotesArguments(t *testing.T) {
	got := RenderHotspotCommand("wlan1", "NextUI-AB12", "pass word")
	assert.Contains(t, got, "hostapd-cli")
	assert.Contains(t, got, "NextUI-AB12")
	assert.Contains(t, got, `'SET wpa_passphrase pass word'`)
}

func TestRenderConnectCommand_QuotesArguments(t *testing.T) {
	got := RenderConnectCommand("wlan0", "Home WiFi", "secret")
	assert.Contains(t, got, "nmcli")
	assert.Contains(t, got, `'Home WiFi'`)
}
