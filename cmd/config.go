package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/framesmith/internal/config"
	"firestige.xyz/framesmith/internal/ruleset"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after defaults, environment overrides
(FRAMESMITH_*) and flags are applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeConfig(cmd.OutOrStdout(), cfg)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and compile the responder rules",
	Long: `Validate the configuration file and compile responder.rules without
opening an interface. Actions that need an interface address must name
action.mac to pass.

Examples:
  framesmith config validate -c framesmith.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.OutOrStdout(), cfg)
	},
}

var configActionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the reply actions rules can use",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range ruleset.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configActionsCmd)
}

func writeConfig(out io.Writer, c *config.GlobalConfig) error {
	root := struct {
		Framesmith *config.GlobalConfig `yaml:"framesmith"`
	}{c}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

func runValidate(out io.Writer, c *config.GlobalConfig) error {
	table, err := ruleset.Compile(c.Responder, ruleset.Env{})
	if err != nil {
		fmt.Fprintf(out, "INVALID: %v\n", err)
		return err
	}
	fmt.Fprintf(out, "VALID: %d rule(s)\n", table.Len())
	for i, r := range table.Rules() {
		fmt.Fprintf(out, "  %d. %s: %s\n", i+1, r.Name, r.Predicate)
	}
	return nil
}
