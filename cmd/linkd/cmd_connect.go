package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nextui-games/linkrt/pkg/config"
	"github.com/nextui-games/linkrt/pkg/gbalink"
	"github.com/nextui-games/linkrt/pkg/gblink"
	"github.com/nextui-games/linkrt/pkg/netplay"
	"github.com/nextui-games/linkrt/pkg/radio"
	"github.com/nextui-games/linkrt/pkg/session"
)

var connectCmd = &cobra.Command{
	Use:   "connect <host-ip>",
	Short: "Join a link session hosted by a peer",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnect,
}

func init() {
	connectCmd.Flags().String("transport", "netplay", "transport: netplay, gbalink, or gblink")
	connectCmd.Flags().Bool("join-hotspot", false, "join the host's WiFi hotspot before connecting (prompts for its password)")
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	hostAddr := args[0]
	transportName, _ := cmd.Flags().GetString("transport")
	joinHotspot, _ := cmd.Flags().GetBool("join-hotspot")
	cfg := config.FromViper()

	kind, err := parseTransport(transportName)
	if err != nil {
		return err
	}

	var r radio.Radio
	if joinHotspot {
		ssid, password, err := promptHotspotCredentials()
		if err != nil {
			return err
		}
		lr := radio.NewLoopback("")
		if err := lr.ConnectToNetwork(ssid, password); err != nil {
			return fmt.Errorf("join hotspot: %w", err)
		}
		r = lr
	}

	sess := session.New(kind.sessionTransport(), session.RoleClient, modeFor(joinHotspot), r)
	if err := sess.Precheck(); err != nil {
		return err
	}

	switch kind {
	case transportNetplay:
		s := netplay.NewSession(newDemoCore().callbacks(), &demoState{}, nil, "")
		if err := s.Connect(fmt.Sprintf("%s:%d", hostAddr, cfg.Netplay.TCPPort), 5*time.Second); err != nil {
			return err
		}
		sess.Attach(s)
		defer sess.Teardown("client exited")
		go netplayFrameLoop(s)
		fmt.Println("connected, Ctrl-C to end the session")
		<-blockForever()

	case transportGBALink:
		s := gbalink.NewSession(newDemoCore().callbacks(), "linkd-demo-mode", nil, "")
		if err := s.Connect(fmt.Sprintf("%s:%d", hostAddr, cfg.GBALink.TCPPort)); err != nil {
			if errors.Is(err, gbalink.ErrNeedsReload) {
				fmt.Printf("link mode mismatch: host wants %q, reconnect after reloading\n", s.PendingLinkMode())
			}
			return err
		}
		sess.Attach(s)
		defer sess.Teardown("client exited")
		go pollLoop(func() error { return s.Poll() })
		fmt.Println("connected, Ctrl-C to end the session")
		<-blockForever()

	case transportGBLink:
		s := gblink.NewSession(demoOptionWriter{}, newDemoCore().callbacks(), nil, "")
		if err := s.Connect(hostAddr); err != nil {
			return err
		}
		sess.Attach(s)
		defer sess.Teardown("client exited")
		fmt.Println("connect options written, waiting for the core to report link-up")
		<-blockForever()
	}
	return nil
}

func modeFor(hotspot bool) session.Mode {
	if hotspot {
		return session.ModeHotspot
	}
	return session.ModeWiFi
}

func blockForever() <-chan struct{} {
	ctx, _ := signalContext()
	return ctx.Done()
}

// promptHotspotCredentials reads the hotspot password from the terminal
// without echoing it, using a raw terminal the same way an interactive
// NetworkManager join prompt would (SPEC_FULL.md §B: "raw-terminal WiFi
// password prompt for the `connect` subcommand's interactive hotspot-join
// path").
func promptHotspotCredentials() (ssid, password string, err error) {
	fmt.Print("Hotspot SSID: ")
	if _, err := fmt.Scanln(&ssid); err != nil {
		return "", "", err
	}

	fmt.Print("Hotspot password: ")
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		// Not a real terminal (e.g. piped stdin in tests): fall back to
		// an unmasked read rather than failing outright.
		if _, err := fmt.Scanln(&password); err != nil {
			return "", "", err
		}
		return ssid, password, nil
	}

	line, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", "", err
	}
	return ssid, string(line), nil
}
