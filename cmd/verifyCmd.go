package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"promptrun/runner"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validate the inventory and every command script without connecting",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, devices, err := prepareConfig()
		if err != nil {
			return err
		}
		for _, d := range devices {
			if err := runner.CheckScript(d.CommandsFile); err != nil {
				return fmt.Errorf("device %s: %w", d.label(), err)
			}
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Config OK: %d device(s)\n", len(devices))
		return nil
	},
}
