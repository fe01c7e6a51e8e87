package main

import (
	"bufio"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/nextui-games/linkrt/pkg/core"
)

// demoCore wires a transport's core.Callbacks to the terminal: bytes typed
// at stdin are sent to the peer, bytes received from the peer are printed
// to stdout. It stands in for the real emulator core, which is an external
// collaborator this module only consumes an interface for (spec.md §6.3).
type demoCore struct {
	send    atomic.Value // core.SendFunc
	started atomic.Bool
}

func newDemoCore() *demoCore {
	return &demoCore{}
}

func (d *demoCore) callbacks() core.Callbacks {
	return core.Callbacks{
		Start: func(id core.PeerID, send core.SendFunc, _ core.PollFunc) {
			d.send.Store(send)
			if d.started.CompareAndSwap(false, true) {
				go d.readStdin()
			}
		},
		Receive: func(id core.PeerID, payload []byte) {
			fmt.Printf("< %s\n", string(payload))
		},
		Connected: func(id core.PeerID) {
			fmt.Printf("peer %d connected\n", id)
		},
		Disconnected: func(id core.PeerID) {
			fmt.Printf("peer %d disconnected\n", id)
		},
		Stop: func() {
			fmt.Println("session stopped")
		},
	}
}

func (d *demoCore) readStdin() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if v := d.send.Load(); v != nil {
			send := v.(core.SendFunc)
			_ = send(core.PeerHost, []byte(line))
		}
	}
}

// demoOptionWriter is a GB Link core.OptionWriter stand-in that just prints
// the option batches it would otherwise forward to the emulator core.
type demoOptionWriter struct{}

func (demoOptionWriter) BeginOptionBatch() { fmt.Println("[gblink] begin option batch") }
func (demoOptionWriter) SetOption(name, value string) {
	fmt.Printf("[gblink] set %s=%s\n", name, value)
}
func (demoOptionWriter) EndOptionBatch()    { fmt.Println("[gblink] end option batch") }
func (demoOptionWriter) ForceOptionUpdate() { fmt.Println("[gblink] force option update") }

// demoState is a trivial core.StateSerializer for Netplay's handoff demo:
// a fixed-size counter payload rather than a real savestate.
type demoState struct {
	n byte
}

func (s *demoState) SerializeState() ([]byte, error) {
	s.n++
	return []byte{s.n}, nil
}

func (s *demoState) DeserializeState(b []byte) error {
	if len(b) > 0 {
		s.n = b[0]
	}
	return nil
}

func (s *demoState) StateSize() (int, error) { return 1, nil }
