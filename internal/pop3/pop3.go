// Package pop3 serves the site as a read-only POP3 maildrop: one
// message per page. Any credentials are accepted and nothing is ever
// deleted.
package pop3

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dshills/retroweb/internal/config"
	"github.com/dshills/retroweb/internal/content"
	"github.com/dshills/retroweb/internal/logging"
	"github.com/dshills/retroweb/internal/mail"
	"github.com/dshills/retroweb/internal/metrics"
)

// Server is the POP3 listener. The maildrop is rebuilt on content
// reload; a connection keeps the maildrop it was accepted with.
type Server struct {
	cfg     *config.Config
	content *content.Store
	log     *zap.Logger
	drop    atomic.Pointer[mail.Maildrop]
}

// New creates a server over the given content store.
func New(cfg *config.Config, contentStore *content.Store) *Server {
	return &Server{
		cfg:     cfg,
		content: contentStore,
		log:     logging.Named("pop3"),
	}
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.refresh()
	go s.watchContent(ctx)

	ln, err := net.Listen("tcp", s.cfg.POP3Addr)
	if err != nil {
		return fmt.Errorf("listen pop3: %w", err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.Info("listening", zap.String("addr", s.cfg.POP3Addr))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept pop3: %w", err)
		}
		go s.handle(conn)
	}
}

func (s *Server) refresh() {
	s.drop.Store(mail.Build(s.content.Snapshot()))
}

func (s *Server) watchContent(ctx context.Context) {
	updates := s.content.Subscribe()
	for {
		select {
		case <-updates:
			s.refresh()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	metrics.ConnectionOpened("pop3")
	defer metrics.ConnectionClosed("pop3")
	s.log.Debug("connection", zap.String("remote", conn.RemoteAddr().String()))

	if err := serve(conn, s.drop.Load()); err != nil {
		s.log.Debug("connection error", zap.Error(err))
	}
}

// serve runs the POP3 state machine over one connection.
func serve(rw io.ReadWriter, drop *mail.Maildrop) error {
	sc := bufio.NewScanner(rw)
	w := bufio.NewWriter(rw)

	respond := func(format string, args ...any) error {
		fmt.Fprintf(w, format, args...)
		return w.Flush()
	}

	if err := respond("+OK POP3 server ready\r\n"); err != nil {
		return err
	}

	// Authorization state: any USER and PASS pair is accepted.
	gotUser, gotPass := false, false
	for !gotUser || !gotPass {
		fields, ok := nextCommand(sc)
		if !ok {
			return sc.Err()
		}
		switch verb(fields) {
		case "USER":
			gotUser = true
			if err := respond("+OK\r\n"); err != nil {
				return err
			}
		case "PASS":
			gotPass = true
			if err := respond("+OK\r\n"); err != nil {
				return err
			}
		case "QUIT":
			return respond("+OK\r\n")
		default:
			if err := respond("-ERR\r\n"); err != nil {
				return err
			}
		}
	}

	// Transaction state.
	for {
		fields, ok := nextCommand(sc)
		if !ok {
			return sc.Err()
		}

		var err error
		switch verb(fields) {
		case "QUIT":
			return respond("+OK\r\n")

		case "STAT":
			err = respond("+OK %d %d\r\n", len(drop.Messages), drop.TotalSize)

		case "LIST":
			if len(fields) > 1 {
				if m, ok := message(drop, fields[1]); ok {
					err = respond("+OK %s %d\r\n", fields[1], m.Size)
				} else {
					err = respond("-ERR\r\n")
				}
				break
			}
			fmt.Fprintf(w, "+OK\r\n")
			for i, m := range drop.Messages {
				fmt.Fprintf(w, "%d %d\r\n", i+1, m.Size)
			}
			fmt.Fprintf(w, ".\r\n")
			err = w.Flush()

		case "RETR":
			m, ok := mail.Message{}, false
			if len(fields) > 1 {
				m, ok = message(drop, fields[1])
			}
			if !ok {
				err = respond("-ERR\r\n")
				break
			}
			fmt.Fprintf(w, "+OK\r\n")
			for _, line := range m.Lines {
				fmt.Fprintf(w, "%s", line)
			}
			fmt.Fprintf(w, ".\r\n")
			err = w.Flush()

		case "NOOP", "RSET":
			err = respond("+OK\r\n")

		default:
			err = respond("-ERR\r\n")
		}
		if err != nil {
			return err
		}
	}
}

func nextCommand(sc *bufio.Scanner) ([]string, bool) {
	if !sc.Scan() {
		return nil, false
	}
	return strings.Fields(sc.Text()), true
}

func verb(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

func message(drop *mail.Maildrop, arg string) (mail.Message, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return mail.Message{}, false
	}
	return drop.Message(n)
}
