package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/framesmith/internal/capture"
	"firestige.xyz/framesmith/internal/match"
	"firestige.xyz/framesmith/internal/transport"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record received frames to a pcap file",
	Long: `Record frames received on the interface to a pcap file until the count is
reached or the command is interrupted.

Examples:
  framesmith capture -o arp.pcap --ether-type 0x0806 -n 100
  framesmith capture -i eth0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if captureOutput != "" {
			cfg.Capture.Output = captureOutput
		}
		if captureCount >= 0 {
			cfg.Capture.Count = captureCount
		}

		ch, err := transport.Open(cfg.Interface)
		if err != nil {
			return err
		}
		defer ch.Close()

		sink, err := capture.CreatePcapFile(cfg.Capture.Output, cfg.Capture.SnapLen)
		if err != nil {
			return err
		}
		defer sink.Close()

		opts := []capture.Option{capture.WithCount(cfg.Capture.Count)}
		if captureEtherType != 0 {
			opts = append(opts, capture.WithFilter(match.NewEthernetQuery().WithEtherType(captureEtherType)))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		n, err := capture.NewRecorder(ch, sink, opts...).Run(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "%d frame(s) written to %s\n", n, cfg.Capture.Output)
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

var (
	captureOutput    string
	captureCount     int
	captureEtherType uint16
)

func init() {
	captureCmd.Flags().StringVarP(&captureOutput, "output", "o", "",
		"pcap file to write (overrides capture.output)")
	captureCmd.Flags().IntVarP(&captureCount, "count", "n", -1,
		"stop after this many frames (overrides capture.count)")
	captureCmd.Flags().Uint16Var(&captureEtherType, "ether-type", 0,
		"record only frames with this EtherType")
}
