package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/frame"
	"firestige.xyz/framesmith/internal/header"
	"firestige.xyz/framesmith/internal/match"
	"firestige.xyz/framesmith/internal/responder"
	"firestige.xyz/framesmith/internal/ruleset"
	"firestige.xyz/framesmith/internal/transport"
)

var probeCmd = &cobra.Command{
	Use:   "probe <target-ip>",
	Short: "Resolve an IPv4 address with an ARP who-has",
	Long: `Broadcast an ARP request for the target address and wait for the reply.

Examples:
  framesmith probe 192.168.1.1
  framesmith probe 192.168.1.1 -i eth1 --timeout 2s`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := core.ParseIPv4(args[0])
		if err != nil {
			return err
		}

		iface, err := transport.Resolve(cfg.Interface.Name)
		if err != nil {
			return err
		}
		cfg.Interface.Name = iface.Name
		ch, err := transport.Open(cfg.Interface)
		if err != nil {
			return err
		}
		defer ch.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
		defer cancel()
		env := ruleset.Env{MAC: iface.MAC, IP: iface.PrimaryIPv4()}
		return runProbe(ctx, ch, env, target, cmd.OutOrStdout())
	},
}

var probeTimeout time.Duration

func init() {
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 3*time.Second,
		"how long to wait for the reply")
}

// probeExpect matches the ARP reply sent by target.
func probeExpect(target core.IPv4Addr) match.Predicate {
	return match.NewARPQuery().WithOpcode(header.OpReply).WithSrcIP(target)
}

func runProbe(ctx context.Context, t responder.Transport, env ruleset.Env, target core.IPv4Addr, out io.Writer) error {
	start := time.Now()
	reply, err := responder.Probe(ctx, t, ruleset.NewRequest(env.MAC, env.IP, target), probeExpect(target))
	if err != nil {
		return err
	}
	mac, err := senderMAC(reply)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s is at %s (%s)\n", target, mac, time.Since(start).Round(time.Microsecond))
	return nil
}

func senderMAC(f *frame.Frame) (core.HardwareAddr, error) {
	network, ok := f.Network()
	if !ok {
		return core.HardwareAddr{}, core.ErrMissingLayer
	}
	a, err := network.ARP()
	if err != nil {
		return core.HardwareAddr{}, err
	}
	return a.SrcMAC, nil
}
