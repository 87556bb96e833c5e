// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/framesmith/internal/config"
	"firestige.xyz/framesmith/internal/log"
)

var (
	// Global flags
	configFile string
	logLevel   string
	ifaceName  string

	// cfg is loaded before any subcommand runs
	cfg *config.GlobalConfig
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "framesmith",
	Short: "Framesmith - build, match and answer Ethernet frames",
	Long: `Framesmith crafts Ethernet, ARP and IPv4 frames bit by bit, matches
received frames against wildcard queries and answers them from a rule table.

Features:
  - Bit-exact codecs for Ethernet II, ARP and IPv4 headers
  - Wildcard queries with first-match-wins rule tables
  - Auto responder on AF_PACKET sockets or pcap replay
  - ARP probing and pcap capture`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults only when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override log.level (debug/info/warn/error)")
	rootCmd.PersistentFlags().StringVarP(&ifaceName, "interface", "i", "",
		"override interface.name")

	rootCmd.AddCommand(respondCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(interfacesCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads the configuration, applies flag overrides and
// initializes logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
		if err := loaded.ValidateAndApplyDefaults(); err != nil {
			return err
		}
	}
	if ifaceName != "" {
		loaded.Interface.Name = ifaceName
	}
	if err := log.Init(loaded.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	cfg = loaded
	return nil
}
