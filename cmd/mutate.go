package cmd

import (
	"github.com/spf13/cobra"

	"github.com/crashfs/crashfs/internal/mutate"
)

var (
	mutateSplitWrite bool
	mutateZeroFill   bool
	mutateDropSync   bool
)

var mutateCmd = &cobra.Command{
	Use:   "mutate",
	Short: "Rewrite changes by splitting writes, zero-filling data, or dropping syncs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newDriver().Mutate(mutate.Options{
			SplitWrite: mutateSplitWrite,
			ZeroFill:   mutateZeroFill,
			DropSync:   mutateDropSync,
		})
	},
}

func init() {
	mutateCmd.Flags().BoolVar(&mutateSplitWrite, "split-write", false, "Split each write in half.")
	mutateCmd.Flags().BoolVar(&mutateZeroFill, "zero-fill", false, "Replace write data with zeros.")
	mutateCmd.Flags().BoolVar(&mutateDropSync, "drop-sync", false, "Remove every sync entry.")
}
