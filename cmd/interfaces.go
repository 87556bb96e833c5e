package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/framesmith/internal/transport"
)

var interfacesCmd = &cobra.Command{
	Use:     "interfaces",
	Aliases: []string{"ifaces"},
	Short:   "List network interfaces",
	Long: `List the links known to the kernel with their hardware and IPv4 addresses.
The default interface, used when interface.name is empty, is marked with *.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ifaces, err := transport.Interfaces()
		if err != nil {
			return err
		}
		printInterfaces(cmd.OutOrStdout(), ifaces)
		return nil
	},
}

func printInterfaces(out io.Writer, ifaces []transport.Interface) {
	def := ""
	if iface, err := transport.PickDefault(ifaces); err == nil {
		def = iface.Name
	}
	for _, iface := range ifaces {
		mark := " "
		if iface.Name == def {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %s\n", mark, iface)
	}
}
