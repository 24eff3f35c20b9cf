// Package webservice provides the HTTP bridge through which the host calls the adapter extension points.
package webservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/lvlagency/gforms-gtm/internal/constants"
	"github.com/lvlagency/gforms-gtm/internal/plugin"
	"github.com/lvlagency/gforms-gtm/internal/webservice/handlers"
	"github.com/lvlagency/gforms-gtm/internal/webservice/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Server is the bridge HTTP server, along with the metrics server.
type Server struct {
	httpServer    *http.Server
	metricsServer *http.Server
	cm            dConfigManager

	mu          sync.RWMutex
	primaryAddr net.Addr
	metricsAddr net.Addr

	// This context is used to interrupt any action.
	// It must be the parent of gracefulCtx.
	ctx    context.Context
	cancel context.CancelFunc

	// This context waits until the next blocking Recv to interrupt.
	gracefulCtx    context.Context
	gracefulCancel context.CancelFunc

	log *slog.Logger
}

// StaticConfig holds the static configuration for the server.
type StaticConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	MaxHeaderBytes  int
	MaxRequestBytes int64

	ListenHost string
	ListenPort int

	MetricsHost string
	MetricsPort int
}

// ErrTimeoutOrder is returned when a request could be cut before the registry fetch it waits on gives up.
var ErrTimeoutOrder = errors.New("request timeout must exceed the registry fetch timeout and be shorter than the write timeout")

// validate checks that requests outlive the registry fetch.
func (sc StaticConfig) validate() error {
	if sc.RequestTimeout <= constants.FetchTimeout || sc.WriteTimeout <= sc.RequestTimeout {
		return fmt.Errorf("%w: fetch %s, request %s, write %s", ErrTimeoutOrder, constants.FetchTimeout, sc.RequestTimeout, sc.WriteTimeout)
	}
	return nil
}

type dConfigManager interface {
	Load() error
	Watch(context.Context) (<-chan struct{}, <-chan error, error)
}

type options struct {
	registry *prometheus.Registry
	log      *slog.Logger
}

// Options represents an optional function to override Server default values.
type Options func(*options)

// WithLogger sets the logger of the server and its handlers.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// New creates a new Server serving the extension points of p, with settings managed by cm.
func New(ctx context.Context, p *plugin.Plugin, cm dConfigManager, sc StaticConfig, args ...Options) (*Server, error) {
	opts := options{
		registry: prometheus.NewRegistry(),
		log:      slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	if err := sc.validate(); err != nil {
		return nil, err
	}

	if err := cm.Load(); err != nil {
		return nil, fmt.Errorf("failed to load settings: %v", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	gCtx, gCancel := context.WithCancel(ctx)

	s := Server{
		cm:     cm,
		ctx:    ctx,
		cancel: cancel,

		gracefulCtx:    gCtx,
		gracefulCancel: gCancel,

		log: opts.log,
	}

	opts.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mw := metrics.New(opts.registry)
	hOpts := []handlers.Options{handlers.WithMaxRequestBytes(sc.MaxRequestBytes), handlers.WithLogger(opts.log)}

	mux := http.NewServeMux()
	route := func(method, path, name string, h http.Handler) {
		mux.Handle(method+" "+path, mw.Monitor(name, h))
	}
	route(http.MethodPost, plugin.PathConfirmation, "confirmation", handlers.NewConfirmation(p, hOpts...))
	route(http.MethodPost, plugin.PathFormArgs, "form-args", handlers.NewFormArgs(hOpts...))
	route(http.MethodPost, plugin.PathFormTag, "form-tag", handlers.NewFormTag(hOpts...))
	route(http.MethodGet, plugin.PathCSSVars, "css-vars", handlers.NewCSSVars(p))
	route(http.MethodGet, plugin.PathStylesheet, "stylesheet", http.HandlerFunc(handlers.StylesheetHandler))
	route(http.MethodPost, plugin.PathUpdateCheck, "update-check", handlers.NewUpdateCheck(p, hOpts...))
	route(http.MethodPost, plugin.PathUpdateInfo, "update-info", handlers.NewUpdateInfo(p, hOpts...))
	route(http.MethodPost, plugin.PathPreInstall, "pre-install", handlers.NewPreInstall(p, hOpts...))
	route(http.MethodPost, plugin.PathLifecycle+"{action}", "lifecycle", handlers.NewLifecycle(p, hOpts...))
	route(http.MethodGet, plugin.PathHooks, "hooks", handlers.NewHooks(p))
	route(http.MethodGet, plugin.PathVersion, "version", http.HandlerFunc(handlers.VersionHandler))

	s.httpServer = &http.Server{
		Addr:           net.JoinHostPort(sc.ListenHost, strconv.Itoa(sc.ListenPort)),
		ReadTimeout:    sc.ReadTimeout,
		WriteTimeout:   sc.WriteTimeout,
		Handler:        http.TimeoutHandler(mux, sc.RequestTimeout, ""),
		MaxHeaderBytes: sc.MaxHeaderBytes,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metrics.Handler(opts.registry))
	s.metricsServer = &http.Server{
		Addr:              net.JoinHostPort(sc.MetricsHost, strconv.Itoa(sc.MetricsPort)),
		ReadHeaderTimeout: sc.ReadTimeout,
		Handler:           metricsMux,
	}

	return &s, nil
}

// Run starts the HTTP servers and serves requests until Quit is called or a server fails.
func (s *Server) Run() error {
	// already asked to quit?
	select {
	case <-s.gracefulCtx.Done():
		return errors.New("server is already shutting down")
	default:
	}

	_, watchErr, err := s.cm.Watch(s.gracefulCtx)
	if err != nil {
		return fmt.Errorf("failed to start watching settings: %v", err)
	}

	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("failed to listen on %s: %v", s.httpServer.Addr, err)
	}
	mLis, err := net.Listen("tcp", s.metricsServer.Addr)
	if err != nil {
		lis.Close()
		s.cancel()
		return fmt.Errorf("failed to listen on %s for metrics: %v", s.metricsServer.Addr, err)
	}

	s.mu.Lock()
	s.primaryAddr = lis.Addr()
	s.metricsAddr = mLis.Addr()
	s.mu.Unlock()

	s.log.Info("Starting server", "addr", lis.Addr().String(), "metrics", mLis.Addr().String())

	serverErr := make(chan error, 2)
	serve := func(srv *http.Server, l net.Listener) {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}
	go serve(s.httpServer, lis)
	go serve(s.metricsServer, mLis)

	select {
	case <-s.gracefulCtx.Done():
		s.log.Info("Graceful shutdown initiated")
		// use parent ctx so if you call s.cancel() elsewhere it unblocks Shutdown immediately
		err := errors.Join(s.httpServer.Shutdown(s.ctx), s.metricsServer.Shutdown(s.ctx))
		s.cancel()
		if err != nil {
			s.log.Error("Graceful shutdown failed", "err", err)
			return err
		}
		s.log.Info("Server shut down gracefully")
		return nil

	case err := <-serverErr:
		s.log.Error("Server encountered error", "err", err)
		errC := errors.Join(s.httpServer.Close(), s.metricsServer.Close())
		s.cancel()
		return errors.Join(err, errC)

	case err := <-watchErr:
		if err != nil {
			s.log.Error("Settings watcher encountered unrecoverable error", "err", err)
		}
		errC := errors.Join(s.httpServer.Close(), s.metricsServer.Close())
		s.cancel()
		return errors.Join(err, errC)
	}
}

// Quit shuts down the HTTP servers, gracefully unless force is set.
func (s *Server) Quit(force bool) {
	if force {
		s.httpServer.Close()
		s.metricsServer.Close()
		s.cancel()
	} else {
		s.gracefulCancel()
	}
	s.log.Info("Server quit", "force", force)
}

// Addrs returns the addresses the bridge and metrics servers listen on, or nil before Run has bound them.
func (s *Server) Addrs() (primary, metrics net.Addr) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.primaryAddr, s.metricsAddr
}
