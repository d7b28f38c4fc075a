package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/abiosoft/readline"
	"github.com/muesli/cancelreader"
	"github.com/spf13/cobra"
	"github.com/watercolor-games/redteam/core"
	"github.com/watercolor-games/redteam/core/config"
	"github.com/watercolor-games/redteam/core/console"
	"github.com/watercolor-games/redteam/core/logger"
	"github.com/watercolor-games/redteam/core/vfs"
)

var playgroundUser string

type playgroundConsole interface {
	console.Console
	Close() error
}

// playgroundCmd runs the shell on the local terminal for testing
var playgroundCmd = &cobra.Command{
	Use:   "playground",
	Short: "Run the shell locally without starting a server.",
	Long: `Run the shell on the local terminal with a throwaway configuration.

Input that isn't a terminal is read line by line, so scripts can be piped in:

	echo 'ls' | redteam playground
`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		log, err := newLogger(cmd)
		if err != nil {
			return err
		}

		dir, err := os.MkdirTemp("", "playground")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)

		cfg, err := config.Initialize(dir, log)
		if err != nil {
			return err
		}

		world, err := vfs.NewVFSFromConfig(cfg)
		if err != nil {
			return err
		}

		logFd, err := cfg.OpenAppLog()
		if err != nil {
			return err
		}
		defer logFd.Close()
		recorder := logger.NewJsonLinesLogRecorder(logFd).NewSession()

		log.Info().
			Str("dir", dir).
			Str("events", filepath.Join(dir, logFd.Name())).
			Msg("playground started")

		con, err := newPlaygroundConsole(cmd)
		if err != nil {
			return err
		}
		defer con.Close()

		session, err := core.NewSession(con, vfs.NewSessionFs(world), cfg, cfg.LookupUser(playgroundUser), recorder, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func newPlaygroundConsole(cmd *cobra.Command) (playgroundConsole, error) {
	if readline.IsTerminal(int(os.Stdin.Fd())) {
		return console.NewReadlineConsole(console.ReadlineConfig{
			Stdin:  os.Stdin,
			Stdout: cmd.OutOrStdout(),
			Stderr: cmd.ErrOrStderr(),
		})
	}

	stdin, err := cancelreader.NewReader(os.Stdin)
	if err != nil {
		return nil, err
	}
	return console.NewStreamConsole(stdin, cmd.OutOrStdout()), nil
}

func init() {
	rootCmd.AddCommand(playgroundCmd)
	playgroundCmd.Flags().StringVarP(&playgroundUser, "user", "u", "player", "user to log in as")
}
