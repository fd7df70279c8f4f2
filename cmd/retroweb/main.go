// Package main is the entry point for the retroweb server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/retroweb/internal/config"
	"github.com/dshills/retroweb/internal/contact"
	"github.com/dshills/retroweb/internal/content"
	"github.com/dshills/retroweb/internal/gopher"
	"github.com/dshills/retroweb/internal/imap"
	"github.com/dshills/retroweb/internal/logging"
	"github.com/dshills/retroweb/internal/metrics"
	"github.com/dshills/retroweb/internal/pop3"
	"github.com/dshills/retroweb/internal/qotd"
	"github.com/dshills/retroweb/internal/sshd"
	"github.com/dshills/retroweb/internal/web"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := parseFlags()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load configuration: %v\n", err)
		return 1
	}

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: initialize logging: %v\n", err)
		return 1
	}
	defer logging.Sync()
	log := logging.Named("main")
	log.Info("starting", zap.String("version", version), zap.String("domain", cfg.Domain))

	snap, err := content.Load(cfg.ContentDir, content.Options{ShowHidden: cfg.ShowHidden})
	if err != nil {
		log.Error("load content", zap.Error(err))
		return 1
	}
	store := content.NewStore(snap)
	log.Info("content loaded",
		zap.Int("projects", len(snap.Projects)),
		zap.Int("posts", len(snap.Posts)))

	threads, err := contact.Open(cfg.MessageDB, contact.Limits{
		MaxSize:            cfg.MessageMaxSize,
		MaxUnread:          cfg.MaxUnreadThreads,
		MaxUnreadPerSource: cfg.MaxUnreadPerSource,
	})
	if err != nil {
		log.Error("open message store", zap.Error(err))
		return 1
	}
	defer threads.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := content.NewWatcher(cfg.ContentDir, content.Options{ShowHidden: cfg.ShowHidden}, store).Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error { return sshd.New(cfg, store, threads).Run(ctx) })
	if cfg.HTTPAddr != "" {
		g.Go(func() error { return web.New(cfg, store, threads).Run(ctx) })
	}
	if cfg.GopherAddr != "" {
		g.Go(func() error { return gopher.New(cfg, store).Run(ctx) })
	}
	if cfg.POP3Addr != "" {
		g.Go(func() error { return pop3.New(cfg, store).Run(ctx) })
	}
	if cfg.IMAPAddr != "" {
		g.Go(func() error { return imap.New(cfg, store).Run(ctx) })
	}
	if cfg.QOTDAddr != "" {
		g.Go(func() error { return qotd.New(cfg, store).Run(ctx) })
	}
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(ctx, cfg.MetricsAddr) })
	}

	if err := g.Wait(); err != nil {
		log.Error("server error", zap.Error(err))
		return 1
	}
	log.Info("shut down cleanly")
	return 0
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}

func parseFlags() string {
	var configPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "retroweb.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "retroweb.yaml", "Path to configuration file (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Retroweb - a personal site served over yesterday's protocols\n\n")
		fmt.Fprintf(os.Stderr, "Usage: retroweb [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("Retroweb %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		os.Exit(0)
	}

	return configPath
}
