package cmd

import (
	"github.com/spf13/cobra"
	"github.com/watercolor-games/redteam/core/config"
)

// initCmd intializes the game configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the game configuration in the config directory.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		_, err = config.Initialize(cfgPath, logger)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
