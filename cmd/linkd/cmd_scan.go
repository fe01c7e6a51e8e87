package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextui-games/linkrt/pkg/discovery"
	"github.com/nextui-games/linkrt/pkg/netcommon"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the LAN for hosts advertising a link session",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().String("transport", "netplay", "transport: netplay, gbalink, or gblink")
	scanCmd.Flags().Duration("duration", 3*time.Second, "how long to listen for beacons")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	transportName, _ := cmd.Flags().GetString("transport")
	duration, _ := cmd.Flags().GetDuration("duration")

	transport, err := discoveryTransport(transportName)
	if err != nil {
		return err
	}

	scanner, err := discovery.NewScanner(transport, discovery.DefaultMaxHosts)
	if err != nil {
		return fmt.Errorf("open scanner: %w", err)
	}
	defer scanner.Close()

	fmt.Printf("scanning for %s peers for %s...\n", transportName, duration)
	deadline := time.Now().Add(duration)

	for time.Now().Before(deadline) {
		entries, err := scanner.Scan()
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			printHosts(entries)
		}
		time.Sleep(200 * time.Millisecond)
	}
	return nil
}

func printHosts(entries []netcommon.HostEntry) {
	for _, e := range entries {
		fmt.Printf("  %-15s game=%-20s port=%d mode=%s\n", e.IP, e.GameName, e.TCPPort, e.LinkMode)
	}
}

func discoveryTransport(name string) (discovery.Transport, error) {
	switch name {
	case "netplay":
		return discovery.Netplay, nil
	case "gbalink":
		return discovery.GBALink, nil
	case "gblink":
		return discovery.GBLink, nil
	default:
		return discovery.Transport{}, fmt.Errorf("unknown transport %q", name)
	}
}
