package cmd

import "github.com/spf13/cobra"

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Pretty-print the change log",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newDriver().Show(cmd.OutOrStdout())
	},
}
