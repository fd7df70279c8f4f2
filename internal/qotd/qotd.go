// Package qotd implements the Quote of the Day protocol (RFC 865 over
// TCP): each connection receives one random quote drawn from the
// project pages, then the connection closes.
package qotd

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dshills/retroweb/internal/config"
	"github.com/dshills/retroweb/internal/content"
	"github.com/dshills/retroweb/internal/logging"
	"github.com/dshills/retroweb/internal/metrics"
)

// maxQuoteLen is the RFC 865 cap on quote size.
const maxQuoteLen = 512

// Server is the QOTD listener. The quote pool is rebuilt on content
// reload.
type Server struct {
	cfg     *config.Config
	content *content.Store
	log     *zap.Logger
	quotes  atomic.Pointer[[]string]
}

// New creates a server over the given content store.
func New(cfg *config.Config, contentStore *content.Store) *Server {
	return &Server{
		cfg:     cfg,
		content: contentStore,
		log:     logging.Named("qotd"),
	}
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.refresh()
	go s.watchContent(ctx)

	ln, err := net.Listen("tcp", s.cfg.QOTDAddr)
	if err != nil {
		return fmt.Errorf("listen qotd: %w", err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.Info("listening", zap.String("addr", s.cfg.QOTDAddr))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept qotd: %w", err)
		}
		go s.handle(conn)
	}
}

func (s *Server) refresh() {
	quotes := Quotes(s.content.Snapshot())
	s.quotes.Store(&quotes)
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
	metrics.ConnectionOpened("qotd")
	defer metrics.ConnectionClosed("qotd")
	s.log.Debug("request", zap.String("remote", conn.RemoteAddr().String()))

	quotes := *s.quotes.Load()
	if len(quotes) == 0 {
		return
	}
	if _, err := conn.Write([]byte(quotes[rand.Intn(len(quotes))])); err != nil {
		s.log.Debug("send quote", zap.Error(err))
	}
}

// Quotes extracts the quote pool from a snapshot: every sentence of
// project text short enough to fit the protocol's size cap.
func Quotes(snap *content.Snapshot) []string {
	var quotes []string
	for _, p := range snap.Projects {
		for _, line := range strings.Split(p.Text(), "\n") {
			if !strings.Contains(line, ".") {
				continue
			}
			for _, sentence := range strings.Split(line, ".") {
				if sentence == "" {
					continue
				}
				quote := fmt.Sprintf("From Project \"%s\":\n\"%s.\"\n", p.Name, strings.TrimSpace(sentence))
				if len(quote) < maxQuoteLen {
					quotes = append(quotes, quote)
				}
			}
		}
	}
	return quotes
}
