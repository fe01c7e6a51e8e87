package session

import (
	"fmt"

	shellquote "github.com/kballard/go-shellquote"
)

// RenderHotspotCommand renders the shell invocation equivalent to what the
// radio implementation runs to stand up a hotspot, purely for inclusion in
// a support-bundle log line — it is never actually executed (SPEC_FULL.md
// §B: "renders... without actually invoking a shell").
func RenderHotspotCommand(iface, ssid, password string) string {
	args := []string{"hostapd-cli", "-i", iface, "raw", fmt.Sprintf("SET ssid %s", ssid), fmt.Sprintf("SET wpa_passphrase %s", password)}
	return shellquote.Join(args...)
}

// RenderConnectCommand renders the equivalent wpa_supplicant/NetworkManager
// join invocation for diagnostics.
func RenderConnectCommand(iface, ssid, password string) string {
	args := []string{"nmcli", "device", "wifi", "connect", ssid, "ifname", iface, "password", password}
	return shellquote.Join(args...)
}
