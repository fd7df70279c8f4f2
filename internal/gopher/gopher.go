// Package gopher serves the site as a gopher hole: a root menu of
// projects and posts, plaintext pages, and images from the content
// directory.
package gopher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/retroweb/internal/config"
	"github.com/dshills/retroweb/internal/content"
	"github.com/dshills/retroweb/internal/logging"
	"github.com/dshills/retroweb/internal/metrics"
)

// Server is the gopher listener. Requests read the content snapshot
// current at selector time; there is no per-connection state.
type Server struct {
	cfg     *config.Config
	content *content.Store
	log     *zap.Logger
}

// New creates a server over the given content store.
func New(cfg *config.Config, contentStore *content.Store) *Server {
	return &Server{
		cfg:     cfg,
		content: contentStore,
		log:     logging.Named("gopher"),
	}
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.GopherAddr)
	if err != nil {
		return fmt.Errorf("listen gopher: %w", err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.Info("listening", zap.String("addr", s.cfg.GopherAddr))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept gopher: %w", err)
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	metrics.ConnectionOpened("gopher")
	defer metrics.ConnectionClosed("gopher")

	selector, err := bufio.NewReader(io.LimitReader(conn, 1024)).ReadString('\n')
	if err != nil && selector == "" {
		return
	}
	selector = strings.TrimSpace(selector)
	s.log.Debug("request", zap.String("remote", conn.RemoteAddr().String()), zap.String("selector", selector))

	if err := s.route(conn, selector); err != nil {
		s.log.Debug("request error", zap.Error(err))
	}
}

func (s *Server) route(w io.Writer, selector string) error {
	snap := s.content.Snapshot()

	switch {
	case selector == "" || selector == "/":
		menu := NewMenu(w, s.cfg.Domain, s.cfg.GopherPort)
		s.rootMenu(menu, snap)
		return menu.End()

	case strings.HasPrefix(selector, "/projects/"):
		return s.serveProject(w, snap, strings.TrimPrefix(selector, "/projects/"))

	case strings.HasPrefix(selector, "/blog/"):
		return s.servePost(w, snap, strings.TrimPrefix(selector, "/blog/"))

	case strings.HasPrefix(selector, "/images/"):
		return s.serveImage(w, strings.TrimPrefix(selector, "/images/"))

	default:
		menu := NewMenu(w, s.cfg.Domain, s.cfg.GopherPort)
		menu.Info("Not found")
		menu.Entry(Directory, "Go Home", "/")
		return menu.End()
	}
}

func (s *Server) rootMenu(menu *Menu, snap *content.Snapshot) {
	menu.Info("Welcome to the gopher mirror of this site!")
	menu.Info("Not too many people use gopher these days, so I'm glad you're here.")
	menu.Info("It should contain all the same content as the other versions,")
	menu.Info("just in the superior gopher format.")
	menu.Info("")
	menu.Info("# Projects")
	for _, p := range snap.Projects {
		menu.Entry(Directory, p.Name+" - "+p.Description, "/projects/"+p.URL)
	}
	menu.Info("")
	menu.Info("# Blog")
	for _, p := range snap.Posts {
		menu.Entry(File, p.Title+" ("+p.Date+")", "/blog/"+p.URL+".txt")
	}
}

// serveProject serves /projects/<url> as a menu and /projects/<url>.txt
// as plain text.
func (s *Server) serveProject(w io.Writer, snap *content.Snapshot, rest string) error {
	if url, isText := strings.CutSuffix(rest, ".txt"); isText {
		for _, p := range snap.Projects {
			if p.URL == url {
				_, err := io.WriteString(w, content.CRLF(p.Text()))
				return err
			}
		}
		_, err := io.WriteString(w, "Project not found")
		return err
	}

	menu := NewMenu(w, s.cfg.Domain, s.cfg.GopherPort)
	for _, p := range snap.Projects {
		if p.URL != rest {
			continue
		}
		menu.Info("=== " + p.Name + " ===")
		menu.Info(p.Description)
		menu.Entry(File, "(Plaintext version)", "/projects/"+p.URL+".txt")
		if p.Thumbnail != "" {
			menu.Entry(Image, "(Thumbnail)", "/images/"+p.Thumbnail)
		}
		menu.Info(strings.Repeat("=", len(p.Name)+8))
		for _, line := range strings.Split(strings.TrimRight(p.Content, "\n"), "\n") {
			menu.Info(line)
		}
		return menu.End()
	}
	menu.Info("Project not found")
	menu.Entry(Directory, "Go Home", "/")
	return menu.End()
}

func (s *Server) servePost(w io.Writer, snap *content.Snapshot, rest string) error {
	url, _ := strings.CutSuffix(rest, ".txt")
	for _, p := range snap.Posts {
		if p.URL == url {
			_, err := io.WriteString(w, content.CRLF(p.Text()))
			return err
		}
	}
	_, err := io.WriteString(w, "Post not found")
	return err
}

// serveImage streams a file from the content image directory. The name
// is flattened to its base to keep requests inside that directory.
func (s *Server) serveImage(w io.Writer, name string) error {
	path := filepath.Join(s.cfg.ContentDir, "images", filepath.Base(name))
	f, err := os.Open(path)
	if err != nil {
		_, werr := io.WriteString(w, "Image not found")
		return werr
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
