package cmd

import (
	"github.com/spf13/cobra"

	"github.com/crashfs/crashfs/internal/driver"
)

var (
	mountRecord     bool
	mountFilter     string
	mountSudo       bool
	mountAllowOther bool
	mountMountpoint string
	mountExec       string
)

var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Mount the base image as a single file and run a guest command against it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newDriver().Mount(cmd.Context(), driver.MountOptions{
			Record:     mountRecord,
			Filter:     mountFilter,
			Sudo:       mountSudo,
			AllowOther: mountAllowOther,
			Mountpoint: mountMountpoint,
			Exec:       mountExec,
		})
	},
}

func init() {
	mountCmd.Flags().BoolVar(&mountRecord, "record", false,
		"Record every write and fsync issued against the mounted file into changes.")
	mountCmd.Flags().StringVar(&mountFilter, "filter", "",
		`Filter applied when replaying (ignored with --record): "0" or "offset:bits".`)
	mountCmd.Flags().BoolVar(&mountSudo, "sudo", false,
		"Run the guest command with an elevation helper.")
	mountCmd.Flags().BoolVar(&mountAllowOther, "allow-other", false,
		"Pass allow_other to the FUSE mount.")
	mountCmd.Flags().StringVar(&mountMountpoint, "mountpoint", "",
		"Directory to mount at (defaults to a fresh temporary directory).")
	mountCmd.Flags().StringVar(&mountExec, "exec", "",
		`Shell command to run against the mounted file; "$1" expands to its path.`)
	_ = mountCmd.MarkFlagRequired("exec")
}
