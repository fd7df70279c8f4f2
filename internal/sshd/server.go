package sshd

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/gliderlabs/ssh"
	"go.uber.org/zap"
	gossh "golang.org/x/crypto/ssh"

	"github.com/dshills/retroweb/internal/config"
	"github.com/dshills/retroweb/internal/contact"
	"github.com/dshills/retroweb/internal/content"
	"github.com/dshills/retroweb/internal/logging"
	"github.com/dshills/retroweb/internal/metrics"
	"github.com/dshills/retroweb/internal/vfs"
)

// Server accepts SSH connections and runs a terminal session on each.
// Authentication always succeeds; the username only personalizes the
// prompt.
type Server struct {
	cfg     *config.Config
	content *content.Store
	threads *contact.Store
	log     *zap.Logger

	srv    *ssh.Server
	fs     atomic.Pointer[vfs.Snapshot]
	nextID atomic.Uint64
	active atomic.Int64
}

// New creates a server over the given content and thread stores.
func New(cfg *config.Config, contentStore *content.Store, threads *contact.Store) *Server {
	s := &Server{
		cfg:     cfg,
		content: contentStore,
		threads: threads,
		log:     logging.Named("sshd"),
	}
	s.srv = &ssh.Server{
		Addr:    cfg.SSHAddr,
		Handler: s.handle,
		Version: "retroweb",
		PasswordHandler: func(ctx ssh.Context, password string) bool {
			return true
		},
		PublicKeyHandler: func(ctx ssh.Context, key ssh.PublicKey) bool {
			return true
		},
		KeyboardInteractiveHandler: func(ctx ssh.Context, challenger gossh.KeyboardInteractiveChallenge) bool {
			return true
		},
	}
	return s
}

// Run serves until ctx is canceled. It rebuilds the virtual filesystem
// on each content reload; sessions already connected keep the snapshot
// they started with.
func (s *Server) Run(ctx context.Context) error {
	signer, err := loadHostKey(s.cfg.HostKeyPath)
	if err != nil {
		return err
	}
	s.srv.AddHostKey(signer)

	s.refresh()
	go s.watchContent(ctx)

	go func() {
		<-ctx.Done()
		s.srv.Close()
	}()

	s.log.Info("listening", zap.String("addr", s.cfg.SSHAddr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) refresh() {
	s.fs.Store(vfs.Build(s.content.Snapshot()))
}

func (s *Server) watchContent(ctx context.Context) {
	updates := s.content.Subscribe()
	for {
		select {
		case <-updates:
			s.refresh()
			s.log.Info("filesystem rebuilt")
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) handle(sess ssh.Session) {
	id := s.nextID.Add(1)
	metrics.ConnectionOpened("ssh")
	log := s.log.With(zap.Uint64("conn", id), zap.String("remote", sess.RemoteAddr().String()))
	log.Info("connection opened",
		zap.String("user", sess.User()),
		zap.Int64("active", s.active.Add(1)))
	defer func() {
		metrics.ConnectionClosed("ssh")
		log.Info("connection closed", zap.Int64("active", s.active.Add(-1)))
	}()

	pty, winCh, hasPty := sess.Pty()
	if !hasPty {
		io.WriteString(sess, "this server is interactive; connect with a terminal (no command)\r\n")
		sess.Exit(1)
		return
	}

	session := NewSession(id, sess.User(), s.cfg.Domain, remoteHost(sess.RemoteAddr()), s.fs.Load(), s.threads)
	session.Resize(pty.Window.Width, pty.Window.Height)

	// The watchdog gets the only close handle; after the handoff the
	// handler signals it solely through the activity channel.
	closer := make(chan io.Closer, 1)
	closer <- sess
	activity := make(chan struct{}, 1)
	defer close(activity)
	go s.watchdog(log, closer, activity)

	if _, err := sess.Write(session.Welcome()); err != nil {
		return
	}

	ctx := sess.Context()
	reads := make(chan []byte)
	go func() {
		defer close(reads)
		buf := make([]byte, 256)
		for {
			n, err := sess.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				select {
				case reads <- data:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case win, ok := <-winCh:
			if !ok {
				winCh = nil
				continue
			}
			if out := session.Resize(win.Width, win.Height); len(out) > 0 {
				if _, err := sess.Write(out); err != nil {
					return
				}
			}

		case data, ok := <-reads:
			if !ok {
				return
			}
			select {
			case activity <- struct{}{}:
			default:
			}
			out, disconnect := session.Data(ctx, data)
			if len(out) > 0 {
				if _, err := sess.Write(out); err != nil {
					return
				}
			}
			if disconnect {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// watchdog closes the connection after the idle timeout elapses with no
// activity. A closed activity channel means the session ended normally.
func (s *Server) watchdog(log *zap.Logger, closer <-chan io.Closer, activity <-chan struct{}) {
	conn := <-closer
	timer := time.NewTimer(s.cfg.SSHIdleTimeout)
	defer timer.Stop()

	for {
		select {
		case _, ok := <-activity:
			if !ok {
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.cfg.SSHIdleTimeout)

		case <-timer.C:
			log.Info("idle timeout, closing connection")
			metrics.IdleTimeout()
			if err := conn.Close(); err != nil {
				log.Warn("close timed-out connection", zap.Error(err))
			}
			return
		}
	}
}

// remoteHost strips the port so per-source rate limits key on the
// address, not the ephemeral port.
func remoteHost(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
