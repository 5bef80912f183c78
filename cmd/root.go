// Package cmd wires the five crashfs verbs onto cobra commands sharing the
// --dir/--log-format/--log-level/--config-file flags, following the
// teacher's cmd/root.go BindFlags/initConfig shape.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crashfs/crashfs/internal/config"
	"github.com/crashfs/crashfs/internal/driver"
	"github.com/crashfs/crashfs/internal/logger"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error

	currentConfig config.Config
)

var rootCmd = &cobra.Command{
	Use:   "crashfs",
	Short: "Emulate power loss on a block device for crash-consistency testing",
	Long: `crashfs fronts a fixed-size base image with a FUSE filesystem that
presents it as one regular file, recording every write and sync issued
against it into a replayable change log. The log can be mutated and
replayed under arbitrary filters to produce crash-consistent derived
images for a verification harness to check.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}

		c, err := config.Load()
		if err != nil {
			return err
		}
		sev, err := c.Severity()
		if err != nil {
			return err
		}
		logger.Init(c.LogFormat, sev, "")
		currentConfig = c
		return nil
	},
}

// Execute runs the root command, printing any error to stderr and exiting
// with a non-zero status chosen from the error's sentinel kind.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, driver.ErrSetup):
		return 2
	case errors.Is(err, driver.ErrIO):
		return 3
	case errors.Is(err, driver.ErrUpcall):
		return 4
	case errors.Is(err, driver.ErrGuest):
		return 5
	case errors.Is(err, driver.ErrGeneration):
		return 6
	default:
		return 1
	}
}

func newDriver() *driver.Driver {
	return driver.New(currentConfig.Dir)
}

func initConfig() {
	if cfgFile == "" {
		return
	}
	if err := config.ReadConfigFile(cfgFile); err != nil {
		configFileErr = fmt.Errorf("read config file %s: %w", cfgFile, err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file overriding flag defaults.")
	bindErr = config.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(mountCmd, showCmd, mutateCmd, genTestsCmd, runSuiteCmd)
}
