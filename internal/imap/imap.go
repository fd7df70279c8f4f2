// Package imap serves the site maildrop over a minimal tagged IMAP2
// dialect: enough for a vintage mail client to log in, select the one
// mailbox, and fetch pages as messages.
package imap

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

// Server is the IMAP listener. Like the POP3 server, it rebuilds the
// maildrop on content reload and pins it per connection.
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
		log:     logging.Named("imap"),
	}
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.refresh()
	go s.watchContent(ctx)

	ln, err := net.Listen("tcp", s.cfg.IMAPAddr)
	if err != nil {
		return fmt.Errorf("listen imap: %w", err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.Info("listening", zap.String("addr", s.cfg.IMAPAddr))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept imap: %w", err)
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
	metrics.ConnectionOpened("imap")
	defer metrics.ConnectionClosed("imap")
	s.log.Debug("connection", zap.String("remote", conn.RemoteAddr().String()))

	if err := serve(conn, s.drop.Load()); err != nil {
		s.log.Debug("connection error", zap.Error(err))
	}
}

// serve runs the IMAP command loop over one connection.
func serve(rw io.ReadWriter, drop *mail.Maildrop) error {
	sc := bufio.NewScanner(rw)
	w := bufio.NewWriter(rw)

	respond := func(format string, args ...any) error {
		fmt.Fprintf(w, format, args...)
		return w.Flush()
	}

	if err := respond("* OK IMAP2 Service Ready\r\n"); err != nil {
		return err
	}

	for {
		if !sc.Scan() {
			return sc.Err()
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		tag := fields[0]
		if len(fields) == 1 {
			if err := respond("%s BAD missing command\r\n", tag); err != nil {
				return err
			}
			continue
		}

		var err error
		switch strings.ToLower(fields[1]) {
		case "noop":
			err = respond("%s OK\r\n", tag)

		case "login":
			err = respond("%s OK LOGIN completed\r\n", tag)

		case "logout":
			fmt.Fprintf(w, "* BYE IMAP2 server terminating connection\r\n")
			fmt.Fprintf(w, "%s OK LOGOUT completed\r\n", tag)
			return w.Flush()

		case "select":
			fmt.Fprintf(w, "* %d EXISTS\r\n", len(drop.Messages))
			fmt.Fprintf(w, "* FLAGS ()\r\n")
			fmt.Fprintf(w, "* %d RECENT\r\n", len(drop.Messages))
			fmt.Fprintf(w, "%s OK [READ-WRITE] SELECT completed\r\n", tag)
			err = w.Flush()

		case "check":
			fmt.Fprintf(w, "* %d EXISTS\r\n", len(drop.Messages))
			fmt.Fprintf(w, "%s OK CHECK completed\r\n", tag)
			err = w.Flush()

		case "fetch":
			m, n, ok := fetchTarget(drop, fields)
			if !ok {
				err = respond("%s BAD no such message\r\n", tag)
				break
			}
			fmt.Fprintf(w, "* %d FETCH (RFC822 {%d}\r\n", n, len(m.Raw))
			fmt.Fprintf(w, "%s", m.Raw)
			fmt.Fprintf(w, ")\r\n")
			fmt.Fprintf(w, "%s OK FETCH completed\r\n", tag)
			err = w.Flush()

		default:
			err = respond("%s BAD command not implemented\r\n", tag)
		}
		if err != nil {
			return err
		}
	}
}

func fetchTarget(drop *mail.Maildrop, fields []string) (mail.Message, int, bool) {
	if len(fields) < 3 {
		return mail.Message{}, 0, false
	}
	n, err := strconv.Atoi(fields[2])
	if err != nil {
		return mail.Message{}, 0, false
	}
	m, ok := drop.Message(n)
	return m, n, ok
}
