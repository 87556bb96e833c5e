package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/framesmith/internal/bits"
	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/frame"
	"firestige.xyz/framesmith/internal/header"
	"firestige.xyz/framesmith/internal/ruleset"
	"firestige.xyz/framesmith/internal/transport"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Build a frame and send it",
	Long: `Build an ARP or IPv4 frame from flags and send it on the interface.

Unset source addresses default to the interface addresses. The Ethernet
destination defaults to broadcast.

Examples:
  framesmith send --type arp --dst-ip 192.168.1.1
  framesmith send --type arp --opcode reply --dst-mac aa:aa:aa:aa:aa:aa --dst-ip 192.168.1.100
  framesmith send --type ipv4 --src-ip 10.0.0.1 --dst-ip 10.0.0.2 --protocol 17 --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := ruleset.Env{}
		if !sendOpts.dryRun && cfg.Interface.Replay == "" {
			iface, err := transport.Resolve(cfg.Interface.Name)
			if err != nil {
				return err
			}
			cfg.Interface.Name = iface.Name
			env = ruleset.Env{MAC: iface.MAC, IP: iface.PrimaryIPv4()}
		}

		f, err := buildFrame(sendOpts, env)
		if err != nil {
			return err
		}
		if sendOpts.dryRun {
			return printFrame(cmd.OutOrStdout(), f.Bytes())
		}

		ch, err := transport.Open(cfg.Interface)
		if err != nil {
			return err
		}
		defer ch.Close()
		return runSend(f, sendOpts.count, ch, cmd.OutOrStdout())
	},
}

// frameOptions describes a frame on the command line. Empty strings take
// defaults.
type frameOptions struct {
	kind     string
	srcMAC   string
	dstMAC   string
	srcIP    string
	dstIP    string
	opcode   string
	protocol uint8
	ttl      uint8
	id       uint16
	count    int
	dryRun   bool
}

var sendOpts frameOptions

func init() {
	f := sendCmd.Flags()
	f.StringVarP(&sendOpts.kind, "type", "t", "arp", "frame type: arp or ipv4")
	f.StringVar(&sendOpts.srcMAC, "src-mac", "", "Ethernet and ARP sender hardware address")
	f.StringVar(&sendOpts.dstMAC, "dst-mac", "", "Ethernet destination (broadcast when empty)")
	f.StringVar(&sendOpts.srcIP, "src-ip", "", "IPv4 source or ARP sender address")
	f.StringVar(&sendOpts.dstIP, "dst-ip", "", "IPv4 destination or ARP target address")
	f.StringVar(&sendOpts.opcode, "opcode", "request", "ARP opcode: request, reply or a number")
	f.Uint8Var(&sendOpts.protocol, "protocol", header.ProtoICMP, "IPv4 protocol number")
	f.Uint8Var(&sendOpts.ttl, "ttl", 64, "IPv4 time to live")
	f.Uint16Var(&sendOpts.id, "id", 0, "IPv4 identification")
	f.IntVarP(&sendOpts.count, "count", "n", 1, "number of copies to send")
	f.BoolVar(&sendOpts.dryRun, "dry-run", false, "print the frame instead of sending it")
}

// buildFrame assembles and serializes the frame o describes. env supplies
// the source addresses o leaves empty.
func buildFrame(o frameOptions, env ruleset.Env) (*frame.Frame, error) {
	srcMAC, err := macOr(o.srcMAC, env.MAC)
	if err != nil {
		return nil, fmt.Errorf("--src-mac: %w", err)
	}
	dstMAC, err := macOr(o.dstMAC, core.BroadcastMAC)
	if err != nil {
		return nil, fmt.Errorf("--dst-mac: %w", err)
	}
	srcIP, err := ipOr(o.srcIP, env.IP)
	if err != nil {
		return nil, fmt.Errorf("--src-ip: %w", err)
	}
	if o.dstIP == "" {
		return nil, fmt.Errorf("--dst-ip is required")
	}
	dstIP, err := core.ParseIPv4(o.dstIP)
	if err != nil {
		return nil, fmt.Errorf("--dst-ip: %w", err)
	}

	var f *frame.Frame
	switch o.kind {
	case "arp":
		op, err := ruleset.ParseOpcode(o.opcode)
		if err != nil {
			return nil, fmt.Errorf("--opcode: %w", err)
		}
		var targetMAC core.HardwareAddr
		if op != header.OpRequest && dstMAC != core.BroadcastMAC {
			targetMAC = dstMAC
		}
		a := header.ARPFrom(srcMAC, srcIP, targetMAC, dstIP)
		a.Opcode = bits.Uint16(op)
		f = frame.New().
			Header(header.EthernetFrom(srcMAC, dstMAC, header.EtherTypeARP)).
			Header(a)

	case "ipv4":
		ip := header.IPv4From(srcIP, dstIP, o.protocol)
		ip.TTL = bits.Uint8(o.ttl)
		ip.ID = bits.Uint16(o.id)
		f = frame.New().
			Header(header.EthernetFrom(srcMAC, dstMAC, header.EtherTypeIPv4)).
			Header(ip)

	default:
		return nil, fmt.Errorf("--type must be arp or ipv4, got %q", o.kind)
	}

	if err := f.Build(); err != nil {
		return nil, err
	}
	return f, nil
}

type sender interface {
	Send(frame []byte) error
}

func runSend(f *frame.Frame, count int, s sender, out io.Writer) error {
	if count < 1 {
		count = 1
	}
	for i := 0; i < count; i++ {
		if err := s.Send(f.Bytes()); err != nil {
			return fmt.Errorf("send %d/%d: %w", i+1, count, err)
		}
	}
	fmt.Fprintf(out, "sent %d frame(s): %s\n", count, f)
	return nil
}

func printFrame(out io.Writer, raw []byte) error {
	f := frame.Parse(raw)
	_, err := fmt.Fprintf(out, "%s\n\n%s\n%s", f, frame.Hex(raw), frame.Describe(raw))
	return err
}

func macOr(s string, def core.HardwareAddr) (core.HardwareAddr, error) {
	if s == "" {
		return def, nil
	}
	return core.ParseMAC(s)
}

func ipOr(s string, def core.IPv4Addr) (core.IPv4Addr, error) {
	if s == "" {
		return def, nil
	}
	return core.ParseIPv4(s)
}
