package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/gopacket/pcapgo"
	"github.com/spf13/cobra"

	"firestige.xyz/framesmith/internal/frame"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file.pcap]",
	Short: "Decode frames from a pcap file or a hex string",
	Long: `Decode Ethernet frames and print their headers.

Examples:
  framesmith decode capture.pcap
  framesmith decode --hex ffffffffffffaaaaaaaaaaaa0806...
  framesmith decode capture.pcap -v`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch {
		case decodeHex != "":
			raw, err := parseHex(decodeHex)
			if err != nil {
				return err
			}
			return decodeOne(out, 1, raw, decodeVerbose)
		case len(args) == 1:
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return decodePcap(out, f, decodeVerbose)
		default:
			return fmt.Errorf("give a pcap file or --hex")
		}
	},
}

var (
	decodeHex     string
	decodeVerbose bool
)

func init() {
	decodeCmd.Flags().StringVar(&decodeHex, "hex", "", "frame as hex (spaces and colons ignored)")
	decodeCmd.Flags().BoolVarP(&decodeVerbose, "verbose", "v", false, "add a hexdump and the gopacket layer view")
}

func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("--hex: %w", err)
	}
	return raw, nil
}

func decodePcap(out io.Writer, in io.Reader, verbose bool) error {
	r, err := pcapgo.NewReader(in)
	if err != nil {
		return err
	}
	for i := 1; ; i++ {
		raw, _, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if err := decodeOne(out, i, raw, verbose); err != nil {
			return err
		}
	}
}

func decodeOne(out io.Writer, n int, raw []byte, verbose bool) error {
	if _, err := fmt.Fprintf(out, "#%d %d bytes %s\n", n, len(raw), frame.Parse(raw)); err != nil {
		return err
	}
	if !verbose {
		return nil
	}
	_, err := fmt.Fprintf(out, "%s%s\n", frame.Hex(raw), frame.Describe(raw))
	return err
}
