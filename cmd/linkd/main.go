// Command linkd is a demo CLI driving the three link transports directly
// from a terminal: host/join a Netplay, GBA Link, or GB Link session,
// scan for peers, and inspect session status/history (SPEC_FULL.md §E).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nextui-games/linkrt/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "linkd",
	Short: "NextUI link runtime demo CLI",
	Long: `linkd drives the netplay, gbalink, and gblink transports from a
terminal for manual testing: host or join a session over WiFi or a
self-hosted hotspot, scan for peers already broadcasting, and list past
sessions from the history journal.`,
}

func init() {
	cobra.OnInitialize(initConfig)
	config.RegisterFlags(rootCmd)
}

func initConfig() {
	viper.SetConfigName("linkd")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home + "/.config/linkd")
	}
	viper.SetEnvPrefix("LINKD")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig() // missing config file is fine, defaults apply
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
