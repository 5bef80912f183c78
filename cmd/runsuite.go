package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crashfs/crashfs/internal/driver"
)

var runSuiteSudo bool

var runSuiteCmd = &cobra.Command{
	Use:   "run-suite SCRIPT",
	Short: "Run SCRIPT through prepare/record/verify phases over generated filters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := newDriver().RunSuite(cmd.Context(), driver.RunSuiteOptions{
			Sudo:   runSuiteSudo,
			Script: args[0],
		})
		if err != nil {
			return err
		}

		failed := 0
		out := cmd.OutOrStdout()
		for _, r := range results {
			status := "PASS"
			if !r.Passed {
				status = "FAIL"
				failed++
			}
			fmt.Fprintf(out, "%s %s\n", status, r.Filter)
		}

		if failed > 0 {
			return fmt.Errorf("%w: %d/%d verify invocations failed", driver.ErrGuest, failed, len(results))
		}
		return nil
	},
}

func init() {
	runSuiteCmd.Flags().BoolVar(&runSuiteSudo, "sudo", false, "Run SCRIPT with an elevation helper.")
}
