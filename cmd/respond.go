package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/framesmith/internal/daemon"
)

var respondCmd = &cobra.Command{
	Use:     "respond",
	Aliases: []string{"daemon"},
	Short:   "Run the auto responder in foreground",
	Long: `Run the auto responder on the configured interface.

The responder will:
  1. Compile responder.rules against the interface addresses
  2. Open the AF_PACKET channel (or the pcap replay)
  3. Answer every frame matched by a rule, first match wins
  4. Stop on SIGTERM/SIGINT, the reply limit or the end of a replay

SIGHUP reloads the rules from the config file.

Examples:
  framesmith respond -c framesmith.yml
  framesmith respond -c framesmith.yml -i eth1 --limit 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if respondLimit >= 0 {
			cfg.Responder.Limit = respondLimit
		}
		if len(cfg.Responder.Rules) == 0 {
			return fmt.Errorf("no responder.rules configured")
		}

		d := daemon.New(cfg, configFile, pidFile)
		if err := d.Start(); err != nil {
			d.Stop()
			return fmt.Errorf("failed to start responder: %w", err)
		}
		return d.Run()
	},
}

var (
	pidFile      string
	respondLimit int
)

func init() {
	respondCmd.Flags().StringVarP(&pidFile, "pidfile", "p", "",
		"PID file path (none when empty)")
	respondCmd.Flags().IntVar(&respondLimit, "limit", -1,
		"stop after this many replies (overrides responder.limit)")
}
