package radio

import "sync"

// Loopback is a test double for Radio: hotspot start/stop and network
// connect/disconnect just flip in-memory state, and IP is the loopback
// address while connected (0.0.0.0 otherwise) so session tests can run
// without a real WiFi adapter.
type Loopback struct {
	mu            sync.Mutex
	hotspotUp     bool
	connected     bool
	savedSSID     string
	currentSSID   string
	forgotten     map[string]bool
	HotspotIPAddr string
	Password      string
}

// NewLoopback returns a Loopback radio that reports itself connected to ssid
// (empty means disconnected) and whose hotspot IP defaults to 10.0.0.1 to
// match spec.md §6.2.
func NewLoopback(initialSSID string) *Loopback {
	return &Loopback{
		connected:     initialSSID != "",
		currentSSID:   initialSSID,
		forgotten:     make(map[string]bool),
		HotspotIPAddr: "10.0.0.1",
		Password:      "nextui-hotspot",
	}
}

func (l *Loopback) StartHotspot(ssid, password string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hotspotUp = true
	l.Password = password
	return nil
}

func (l *Loopback) StopHotspot() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hotspotUp = false
	return nil
}

func (l *Loopback) HotspotIP() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.HotspotIPAddr
}

func (l *Loopback) HotspotPassword() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Password
}

func (l *Loopback) SaveCurrentConnection() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.savedSSID = l.currentSSID
	return nil
}

func (l *Loopback) RestorePreviousConnection() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.currentSSID = l.savedSSID
	l.connected = l.savedSSID != ""
	return nil
}

func (l *Loopback) ScanNetworks() ([]string, error) {
	return []string{l.currentSSID}, nil
}

func (l *Loopback) ConnectToNetwork(ssid, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.currentSSID = ssid
	l.connected = true
	return nil
}

func (l *Loopback) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = false
	return nil
}

func (l *Loopback) Forget(ssid string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.forgotten[ssid] = true
	return nil
}

func (l *Loopback) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *Loopback) IP() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return "0.0.0.0"
	}
	return "127.0.0.1"
}
