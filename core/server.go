package core

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/gliderlabs/ssh"
	"github.com/juju/ratelimit"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/watercolor-games/redteam/core/config"
	"github.com/watercolor-games/redteam/core/console"
	"github.com/watercolor-games/redteam/core/logger"
	"github.com/watercolor-games/redteam/core/ttylog"
	"github.com/watercolor-games/redteam/core/vfs"
	gossh "golang.org/x/crypto/ssh"
)

// sessionConsole is a console the server can release when the connection
// ends.
type sessionConsole interface {
	console.Console
	io.Closer
}

// Server hosts shells over SSH. Every connection gets a private copy of the
// world filesystem.
type Server struct {
	configuration *config.Configuration
	world         afero.Fs
	recorder      *logger.Logger
	log           zerolog.Logger
	sshServer     *ssh.Server
}

// NewServer creates a server for the given world. The host key is read from
// the configuration directory.
func NewServer(configuration *config.Configuration, world afero.Fs, recorder *logger.Logger, log zerolog.Logger) (*Server, error) {
	pem, err := configuration.PrivateKeyPem()
	if err != nil {
		return nil, fmt.Errorf("reading host key: %w", err)
	}
	signer, err := gossh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("parsing host key: %w", err)
	}

	server := &Server{
		configuration: configuration,
		world:         world,
		recorder:      recorder,
		log:           log,
	}

	server.sshServer = &ssh.Server{
		Addr: fmt.Sprintf(":%d", configuration.SSHPort),
		Handler: func(s ssh.Session) {
			if err := server.HandleConnection(s); err != nil {
				server.log.Error().Err(err).Str("user", s.User()).Msg("session failed")
				s.Exit(1)
				return
			}
			s.Exit(0)
		},
		PasswordHandler: server.checkPassword,
	}
	server.sshServer.AddHostKey(signer)

	return server, nil
}

func (s *Server) checkPassword(ctx ssh.Context, password string) bool {
	ok := s.configuration.AllowAnyPassword
	for _, candidate := range s.configuration.GetPasswords(ctx.User()) {
		if subtle.ConstantTimeCompare([]byte(password), []byte(candidate)) == 1 {
			ok = true
		}
	}

	if err := s.recorder.Sessionless().Record(&logger.LoginAttempt{
		Username:   ctx.User(),
		RemoteAddr: ctx.RemoteAddr().String(),
		Success:    ok,
	}); err != nil {
		s.log.Warn().Err(err).Msg("recording login failed")
	}

	s.log.Info().Str("user", ctx.User()).Str("remote_addr", ctx.RemoteAddr().String()).Bool("success", ok).Msg("login attempt")
	return ok
}

// HandleConnection runs a shell session until it ends.
func (s *Server) HandleConnection(sess ssh.Session) error {
	sessionRecorder := s.recorder.NewSession()
	log := s.log.With().
		Str("session_id", sessionRecorder.SessionID()).
		Str("remote_addr", sess.RemoteAddr().String()).
		Logger()

	var (
		in  io.Reader = sess
		out io.Writer = sess
	)
	if rate := s.configuration.OutputRate; rate > 0 {
		// Chunks are one bucket long, each waits at most a second.
		bucket := ratelimit.NewBucketWithRate(float64(rate), int64(rate))
		throttled := newQueuedWriter(sess.Context(), ratelimit.Writer(sess, bucket), rate)
		defer throttled.Close()
		out = throttled
	}

	if s.configuration.RecordSessions {
		recording, err := s.openRecording(sess, sessionRecorder, log)
		if err != nil {
			log.Warn().Err(err).Msg("couldn't open session recording")
		} else {
			defer recording.Close()
			in = recording.recorder.Reader(in)
			out = recording.recorder.Writer(out)
		}
	}

	con, err := s.newConsole(sess, in, out)
	if err != nil {
		return err
	}
	defer con.Close()

	user := s.configuration.LookupUser(sess.User())
	session, err := NewSession(con, vfs.NewSessionFs(s.world), s.configuration, user, sessionRecorder, log)
	if err != nil {
		return err
	}

	log.Info().Str("user", user.Username).Msg("session opened")
	defer log.Info().Msg("session closed")

	if err := session.Run(sess.Context()); err != nil && sess.Context().Err() == nil {
		return err
	}
	return nil
}

type sessionRecording struct {
	io.Closer
	recorder *ttylog.Recorder
}

func (s *Server) openRecording(sess ssh.Session, sessionRecorder *logger.SessionLogger, log zerolog.Logger) (*sessionRecording, error) {
	name := fmt.Sprintf("%s.%s", sessionRecorder.SessionID(), ttylog.AsciicastFileExt)
	fd, err := s.configuration.CreateSessionRecording(name)
	if err != nil {
		return nil, err
	}

	if err := sessionRecorder.Record(&logger.OpenTTYLog{Name: name}); err != nil {
		log.Warn().Err(err).Msg("recording event failed")
	}

	ptyInfo, _, _ := sess.Pty()
	sink := ttylog.NewAsciicastSink(fd, ttylog.AsciicastHeader{
		Width:  ptyInfo.Window.Width,
		Height: ptyInfo.Window.Height,
		Title:  fmt.Sprintf("%s session %s", sess.User(), sessionRecorder.SessionID()),
		Term:   ptyInfo.Term,
	})
	return &sessionRecording{Closer: fd, recorder: ttylog.NewRecorder(sink, log)}, nil
}

func (s *Server) newConsole(sess ssh.Session, in io.Reader, out io.Writer) (sessionConsole, error) {
	ptyInfo, winch, isPty := sess.Pty()
	if !isPty {
		return console.NewStreamConsole(in, out), nil
	}

	var width atomic.Int32
	width.Store(int32(ptyInfo.Window.Width))
	go func() {
		for window := range winch {
			width.Store(int32(window.Width))
		}
	}()

	return console.NewReadlineConsole(console.ReadlineConfig{
		Stdin:          in,
		Stdout:         out,
		Stderr:         sess.Stderr(),
		FuncGetWidth:   func() int { return int(width.Load()) },
		FuncIsTerminal: func() bool { return true },
	})
}

// Addr is the address the server listens on.
func (s *Server) Addr() string {
	return s.sshServer.Addr
}

// ListenAndServe listens on the configured port.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.sshServer.Addr).Msg("starting SSH server")
	return s.sshServer.ListenAndServe()
}

// Serve accepts connections on l.
func (s *Server) Serve(l net.Listener) error {
	s.log.Info().Str("addr", l.Addr().String()).Msg("starting SSH server")
	return s.sshServer.Serve(l)
}

// Shutdown stops accepting connections and waits for open ones to close.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.sshServer.Shutdown(ctx)
}
