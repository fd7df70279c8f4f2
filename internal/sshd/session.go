// Package sshd serves the interactive terminal over SSH: an
// always-accept server whose sessions run a line-discipline shell over
// the virtual filesystem, with a per-connection idle watchdog.
package sshd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/retroweb/internal/apps"
	"github.com/dshills/retroweb/internal/contact"
	"github.com/dshills/retroweb/internal/logging"
	"github.com/dshills/retroweb/internal/metrics"
	"github.com/dshills/retroweb/internal/term"
	"github.com/dshills/retroweb/internal/vfs"
)

// Session is the per-connection terminal state. Exactly one of the
// shell or a full-screen app owns input at any time; the interrupt byte
// tears a running app down and returns control to the shell.
//
// A session pins the filesystem snapshot current at connect time, so a
// content reload mid-session never shifts directories under the user.
type Session struct {
	id       uint64
	username string
	domain   string
	remote   string
	snap     *vfs.Snapshot
	dir      int
	width    int
	height   int
	shell    *term.Shell
	app      apps.App
	threads  *contact.Store
	log      *zap.Logger
}

// NewSession creates a session for the given user over the given
// filesystem snapshot. remote is the client address without the port.
func NewSession(id uint64, username, domain, remote string, snap *vfs.Snapshot, threads *contact.Store) *Session {
	return &Session{
		id:       id,
		username: username,
		domain:   domain,
		remote:   remote,
		snap:     snap,
		dir:      vfs.RootIndex,
		width:    80,
		height:   24,
		shell:    term.NewShell(),
		threads:  threads,
		log:      logging.Named("sshd").With(zap.Uint64("session", id)),
	}
}

// Prompt returns the shell prompt for the current directory.
func (s *Session) Prompt() []byte {
	return []byte(s.username + "@" + s.domain + ":" + s.snap.Dir(s.dir).Path + "> ")
}

// Welcome returns the greeting sent once the client has a terminal.
func (s *Session) Welcome() []byte {
	return append(append([]byte{}, welcomeBanner...), s.Prompt()...)
}

// Resize records a new terminal size, returning any bytes to send. Only
// a running app redraws on resize; the shell does not.
func (s *Session) Resize(width, height int) []byte {
	s.width, s.height = width, height
	if s.app != nil {
		return s.app.Resize(width, height)
	}
	return nil
}

// Data consumes raw input bytes, returning the bytes to send back and
// whether the session asked to disconnect.
func (s *Session) Data(ctx context.Context, data []byte) (out []byte, disconnect bool) {
	for _, b := range data {
		if s.app != nil {
			if b == term.Interrupt {
				out = append(out, term.NewScreen().Clear().MoveTo(0, 0).Bytes()...)
				out = append(out, s.Prompt()...)
				s.app = nil
			} else {
				out = append(out, s.app.Data(b)...)
			}
			continue
		}

		echo, command, submitted := s.shell.Process(b)
		out = append(out, echo...)
		if !submitted {
			continue
		}
		resp, quit := s.dispatch(ctx, command)
		out = append(out, resp...)
		if quit {
			return out, true
		}
	}
	return out, false
}

// dispatch runs one submitted command line.
func (s *Session) dispatch(ctx context.Context, command string) (out []byte, disconnect bool) {
	verb, _, _ := strings.Cut(command, " ")
	if verb != "" {
		s.log.Info("command", zap.String("line", command))
		// Unknown verbs share one counter label to bound cardinality.
		if knownVerbs[verb] {
			metrics.CommandDispatched(verb)
		} else {
			metrics.CommandDispatched("unknown")
		}
	}

	switch verb {
	case "exit", "logout":
		return nil, true

	case "help":
		out = append(out, welcomeBanner...)

	case "ls":
		dir := s.snap.Dir(s.dir)
		for _, name := range dir.DirNames() {
			out = append(out, name...)
			out = append(out, term.CRLF...)
		}
		for _, name := range dir.FileNames() {
			out = append(out, name...)
			out = append(out, term.CRLF...)
		}

	case "cd":
		path := argN(command, 1)
		if target, ok := s.snap.ResolveFrom(s.dir, path); ok {
			s.dir = target
		} else {
			out = append(out, fmt.Sprintf("%q: no such directory\r\n", path)...)
		}

	case "cat":
		path := argN(command, 1)
		if path == "" {
			out = append(out, "cat: usage: cat <filename>\r\n"...)
			break
		}
		if file := s.snap.ResolveFile(s.dir, path); file != nil {
			out = append(out, file.Raw()...)
		} else {
			out = append(out, fmt.Sprintf("cat: cannot open %q: No such file\r\n", path)...)
		}

	case "vi":
		pager, startup, err := apps.NewPager(s.snap, s.dir, command, s.width, s.height)
		if err != nil {
			out = append(out, err.Error()...)
			out = append(out, term.CRLF...)
			break
		}
		s.app = pager
		out = append(out, startup...)

	case "msg":
		out = append(out, s.msg(ctx, command)...)

	case "":

	default:
		out = append(out, command...)
		out = append(out, ": command not found\r\n"...)
	}

	if s.app == nil {
		out = append(out, s.Prompt()...)
	}
	return out, false
}

var knownVerbs = map[string]bool{
	"exit":   true,
	"logout": true,
	"help":   true,
	"ls":     true,
	"cd":     true,
	"cat":    true,
	"vi":     true,
	"msg":    true,
}

// argN returns the n-th space-separated token of a command line, or ""
// when absent.
func argN(command string, n int) string {
	fields := strings.Split(command, " ")
	if n >= len(fields) {
		return ""
	}
	return fields[n]
}
