package cmd

import (
	"github.com/spf13/cobra"

	"github.com/crashfs/crashfs/internal/gentest"
)

var genTestsCap int

var genTestsCmd = &cobra.Command{
	Use:   "gen-tests",
	Short: "Print generated crash-state filters, one per line",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newDriver().GenTests(cmd.OutOrStdout(), genTestsCap)
	},
}

func init() {
	genTestsCmd.Flags().IntVar(&genTestsCap, "cap", gentest.DefaultCap,
		"Bound on write subsets sampled within the crashing segment.")
}
