package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextui-games/linkrt/pkg/config"
	"github.com/nextui-games/linkrt/pkg/discovery"
	"github.com/nextui-games/linkrt/pkg/gbalink"
	"github.com/nextui-games/linkrt/pkg/gblink"
	"github.com/nextui-games/linkrt/pkg/netplay"
	"github.com/nextui-games/linkrt/pkg/radio"
	"github.com/nextui-games/linkrt/pkg/session"
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Host a link session and wait for a peer to join",
	RunE:  runHost,
}

func init() {
	hostCmd.Flags().String("transport", "netplay", "transport: netplay, gbalink, or gblink")
	hostCmd.Flags().Bool("hotspot", false, "start a self-hosted WiFi hotspot instead of using the current WiFi association")
	hostCmd.Flags().String("game-name", "linkd-demo", "advertised game name in discovery beacons")
	rootCmd.AddCommand(hostCmd)
}

func runHost(cmd *cobra.Command, args []string) error {
	transportName, _ := cmd.Flags().GetString("transport")
	hotspot, _ := cmd.Flags().GetBool("hotspot")
	gameName, _ := cmd.Flags().GetString("game-name")
	cfg := config.FromViper()

	mode := session.ModeWiFi
	var r radio.Radio
	if hotspot {
		mode = session.ModeHotspot
		// No real hostapd/wpa_supplicant driver ships in this module
		// (spec.md §6.4 leaves Radio an external collaborator); Loopback
		// stands in so `linkd host --hotspot` is runnable for a demo.
		r = radio.NewLoopback("")
	}

	kind, err := parseTransport(transportName)
	if err != nil {
		return err
	}

	hist, err := session.OpenHistory(cfg.Session.HistoryPath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer hist.Close()

	sess := session.New(kind.sessionTransport(), session.RoleHost, mode, r, session.WithHistory(hist))
	if err := sess.Precheck(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	ip, err := sess.AcquireAddress(ctx)
	if err != nil {
		return fmt.Errorf("acquire address: %w", err)
	}
	fmt.Printf("hosting on %s\n", ip)

	link, isReady, err := startHostTransport(kind, cfg, gameName)
	if err != nil {
		return err
	}
	sess.Attach(link)
	defer sess.Teardown("host exited")

	if err := sess.WaitConnected(ctx, 5*time.Minute, isReady); err != nil {
		return fmt.Errorf("wait for peer: %w", err)
	}
	fmt.Println("peer connected, Ctrl-C to end the session")

	<-ctx.Done()
	return nil
}

func startHostTransport(kind transportKind, cfg config.Config, gameName string) (session.LinkSession, func() bool, error) {
	switch kind {
	case transportNetplay:
		s := netplay.NewSession(newDemoCore().callbacks(), &demoState{}, nil, "")
		fields := func() discovery.Fields {
			return discovery.Fields{GameName: gameName, TCPPort: uint16(cfg.Netplay.TCPPort)}
		}
		if err := s.StartHost(cfg.Netplay.TCPPort, fields); err != nil {
			return nil, nil, err
		}
		go netplayFrameLoop(s)
		return s, func() bool { return s.Phase() == netplay.Playing }, nil

	case transportGBALink:
		s := gbalink.NewSession(newDemoCore().callbacks(), "linkd-demo-mode", nil, "")
		fields := func() discovery.Fields {
			return discovery.Fields{GameName: gameName, TCPPort: uint16(cfg.GBALink.TCPPort)}
		}
		if err := s.StartHost(cfg.GBALink.TCPPort, fields); err != nil {
			return nil, nil, err
		}
		go pollLoop(func() error { return s.Poll() })
		return s, func() bool { return s.Phase() == gbalink.Connected }, nil

	case transportGBLink:
		s := gblink.NewSession(demoOptionWriter{}, newDemoCore().callbacks(), nil, "")
		fields := func() discovery.Fields {
			return discovery.Fields{GameName: gameName, TCPPort: uint16(cfg.GBLink.TCPPort)}
		}
		if err := s.StartHost(fields); err != nil {
			return nil, nil, err
		}
		return s, func() bool { return s.Phase() == gblink.Connected }, nil
	}
	return nil, nil, fmt.Errorf("unknown transport")
}

// netplayFrameLoop drives PreFrame/PostFrame at a fixed 60Hz rate, standing
// in for the emulator's own frame loop (spec.md §4.3.3) with zero local
// input since this demo has no actual game running.
func netplayFrameLoop(s *netplay.Session) {
	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()
	for range ticker.C {
		if s.Phase() == netplay.Off || s.Phase() == netplay.Disconnected {
			return
		}
		if s.PreFrame(0) {
			s.PostFrame()
		}
	}
}

func pollLoop(poll func() error) {
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		if err := poll(); err != nil {
			return
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

type transportKind int

const (
	transportNetplay transportKind = iota
	transportGBALink
	transportGBLink
)

func (k transportKind) sessionTransport() session.Transport {
	switch k {
	case transportNetplay:
		return session.TransportNetplay
	case transportGBALink:
		return session.TransportGBALink
	default:
		return session.TransportGBLink
	}
}

func parseTransport(name string) (transportKind, error) {
	switch name {
	case "netplay":
		return transportNetplay, nil
	case "gbalink":
		return transportGBALink, nil
	case "gblink":
		return transportGBLink, nil
	default:
		return 0, fmt.Errorf("unknown transport %q (want netplay, gbalink, or gblink)", name)
	}
}
