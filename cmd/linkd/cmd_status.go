package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nextui-games/linkrt/pkg/config"
	"github.com/nextui-games/linkrt/pkg/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent session history",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Int("limit", 10, "number of recent sessions to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	cfg := config.FromViper()

	hist, err := session.OpenHistory(cfg.Session.HistoryPath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer hist.Close()

	entries, err := hist.Recent(limit)
	if err != nil {
		return err
	}

	printStatusLine()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tTRANSPORT\tROLE\tPEER STATUS\tREASON\tENDED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.SessionID, e.Transport, e.Role, e.PeerStatus, e.Reason,
			e.EndedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

// printStatusLine renders a one-line demo TUI header sized to the current
// terminal width (SPEC_FULL.md §B: "terminal size for the demo TUI status
// line"), falling back to 80 columns when stdout isn't a terminal.
func printStatusLine() {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	fmt.Println(strings.Repeat("-", width))
	fmt.Println("linkd session history")
	fmt.Println(strings.Repeat("-", width))
}
