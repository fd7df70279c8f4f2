// Package web serves the plain HTML view of the site (an index of
// projects and posts plus one page per entry), the Atom feed, and the
// contact-form API over the shared message-thread store.
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/dshills/retroweb/internal/config"
	"github.com/dshills/retroweb/internal/contact"
	"github.com/dshills/retroweb/internal/content"
	"github.com/dshills/retroweb/internal/logging"
	"github.com/dshills/retroweb/internal/metrics"
)

const indexTmpl = `<!DOCTYPE html>
<html>
<head><title>{{.Domain}}</title></head>
<body>
<h1>{{.Domain}}</h1>
<h2>Projects</h2>
<ul>
{{range .Projects}}<li><a href="/projects/{{.URL}}">{{.Name}}</a> - {{.Description}}</li>
{{end}}</ul>
<h2>Blog</h2>
<ul>
{{range .Posts}}<li><a href="/blog/{{.URL}}">{{.Title}}</a> ({{.Date}})</li>
{{end}}</ul>
</body>
</html>
`

const pageTmpl = `<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<p><a href="/">Home</a></p>
<h1>{{.Title}}</h1>
{{if .Subtitle}}<p><em>{{.Subtitle}}</em></p>
{{end}}<pre>{{.Body}}</pre>
</body>
</html>
`

type page struct {
	Title    string
	Subtitle string
	Body     string
}

// Server is the HTTP listener.
type Server struct {
	cfg     *config.Config
	content *content.Store
	threads *contact.Store
	log     *zap.Logger
	index   *template.Template
	page    *template.Template
	srv     *http.Server
}

// New creates a server over the given content and message-thread stores.
func New(cfg *config.Config, contentStore *content.Store, threads *contact.Store) *Server {
	s := &Server{
		cfg:     cfg,
		content: contentStore,
		threads: threads,
		log:     logging.Named("web"),
		index:   template.Must(template.New("index").Parse(indexTmpl)),
		page:    template.Must(template.New("page").Parse(pageTmpl)),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /projects/{url}", s.handleProject)
	mux.HandleFunc("GET /blog/{url}", s.handlePost)
	mux.HandleFunc("GET /feed.xml", s.handleFeed)
	mux.HandleFunc("POST /send", s.handleSend)
	mux.HandleFunc("POST /reply/{thread}", s.handleReply)
	mux.HandleFunc("GET /load/{thread}", s.handleLoad)
	s.srv = &http.Server{Addr: cfg.HTTPAddr, Handler: s.instrument(mux)}
	return s
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.srv.Shutdown(context.Background())
	}()

	s.log.Info("listening", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.ConnectionOpened("http")
		defer metrics.ConnectionClosed("http")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.content.Snapshot()
	s.render(w, s.index, struct {
		Domain   string
		Projects []content.Project
		Posts    []content.Post
	}{s.cfg.Domain, snap.Projects, snap.Posts})
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	url := r.PathValue("url")
	for _, p := range s.content.Snapshot().Projects {
		if p.URL == url {
			s.render(w, s.page, page{Title: p.Name, Subtitle: p.Description, Body: p.Content})
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	url := r.PathValue("url")
	for _, p := range s.content.Snapshot().Posts {
		if p.URL == url {
			s.render(w, s.page, page{Title: p.Title, Subtitle: p.Date, Body: p.Markdown})
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.log.Error("render template", zap.Error(err))
	}
}
