package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/collabsched/config"
	"github.com/kilianp07/collabsched/infra/logger"
)

var (
	cfgPath string
	debug   bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "collabsched",
	Short:         "Schedule class sessions on Blackboard Collaborate",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		level := c.Logging.Level
		if debug {
			level = "debug"
		}
		if err := logger.SetLevel(level); err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "log at debug level and dump HTTP traffic")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }
