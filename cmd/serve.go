package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/spf13/cobra"
	"github.com/watercolor-games/redteam/core"
	"github.com/watercolor-games/redteam/core/logger"
	"github.com/watercolor-games/redteam/core/vfs"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the shell over SSH on a local port.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		os.Stdin.Close()
		cmd.SilenceUsage = true

		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		log.Info().Msg("initializing server")

		configuration, err := loadConfig(log)
		if err != nil {
			return err
		}

		world, err := vfs.NewVFSFromConfig(configuration)
		if err != nil {
			return err
		}

		logFd, err := configuration.OpenAppLog()
		if err != nil {
			return err
		}
		defer logFd.Close()

		server, err := core.NewServer(configuration, world, logger.NewJsonLinesLogRecorder(logFd), log)
		if err != nil {
			return err
		}

		serveErr := make(chan error, 1)
		go func() {
			serveErr <- server.ListenAndServe()
		}()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serveErr:
			return err
		case sig := <-sigs:
			log.Info().Str("signal", sig.String()).Msg("terminating")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return err
		}
		if err := <-serveErr; err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			return err
		}
		log.Info().Msg("server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
