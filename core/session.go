package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/watercolor-games/redteam/core/config"
	"github.com/watercolor-games/redteam/core/console"
	"github.com/watercolor-games/redteam/core/logger"
	"github.com/watercolor-games/redteam/core/shell"
	"github.com/watercolor-games/redteam/core/vfs"
)

const defaultTickRate = 30

// doneConsole is implemented by consoles that can tell when their input has
// ended.
type doneConsole interface {
	Done() <-chan struct{}
}

// Session drives one shell on a console at a fixed tick rate.
type Session struct {
	Shell   *shell.Shell
	Console console.Console

	// TickRate is the number of shell ticks per second.
	TickRate int
	// Motd is written before the first prompt.
	Motd string

	log zerolog.Logger
}

// NewSession creates a shell for user on fs. The user's home directory is
// created if it's missing.
func NewSession(con console.Console, fs afero.Fs, cfg *config.Configuration, user config.User, recorder logger.EventRecorder, log zerolog.Logger) (*Session, error) {
	if err := fs.MkdirAll(user.Home, 0755); err != nil {
		return nil, fmt.Errorf("creating home %q: %w", user.Home, err)
	}

	log = log.With().Str("user", user.Username).Logger()
	sh := shell.New(con, vfs.New(fs), shell.Options{
		Name:     cfg.ShellName,
		Home:     user.Home,
		Logger:   &log,
		Recorder: recorder,
	})

	return &Session{
		Shell:    sh,
		Console:  con,
		TickRate: cfg.TickRate,
		Motd:     cfg.Motd,
		log:      log,
	}, nil
}

func (s *Session) tickInterval() time.Duration {
	rate := s.TickRate
	if rate <= 0 {
		rate = defaultTickRate
	}
	return time.Second / time.Duration(rate)
}

// Run ticks the shell until it exits, the console's input ends or ctx is
// done. Only the last case returns an error.
func (s *Session) Run(ctx context.Context) error {
	if s.Motd != "" {
		motd := s.Motd
		if !strings.HasSuffix(motd, "\n") {
			motd += "\n"
		}
		fmt.Fprint(s.Console, motd)
	}

	s.Shell.Start()
	s.log.Debug().Str("home", s.Shell.Home()).Msg("session started")

	ticker := time.NewTicker(s.tickInterval())
	defer ticker.Stop()

	for !s.Shell.Exited() {
		var done <-chan struct{}
		if dc, ok := s.Console.(doneConsole); ok {
			done = dc.Done()
		}

		select {
		case <-ctx.Done():
			s.log.Debug().Err(ctx.Err()).Msg("session cancelled")
			return ctx.Err()

		case <-done:
			// Finish whatever the last line queued.
			for s.Shell.State() == shell.StateExecuting {
				s.Shell.Tick()
			}
			s.log.Debug().Msg("session input ended")
			return nil

		case <-ticker.C:
			s.Shell.Tick()
		}
	}

	s.log.Debug().Msg("session exited")
	return nil
}
