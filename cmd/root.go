package cmd

import (
	"errors"
	"io/fs"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/watercolor-games/redteam/core/config"
)

var (
	cfgPath  string
	logLevel string
)

func loadConfig(logger zerolog.Logger) (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		logger.Error().Str("config", cfgPath).Msg("couldn't load config: did you run init?")
	}

	return configuration, err
}

// newLogger creates the diagnostic logger for a command.
func newLogger(cmd *cobra.Command) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return zerolog.Nop(), err
	}
	return zerolog.New(cmd.ErrOrStderr()).Level(level).With().Timestamp().Logger(), nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "redteam",
	Short: "Red Team game shell",
	Long:  `A simulated shell for the Red Team hacking game, playable locally or over SSH.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "diagnostic log level (debug|info|warn|error)")
}
