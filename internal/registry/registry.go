// Package registry is the client of the package registry publishing the adapter releases.
package registry

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lvlagency/gforms-gtm/internal/constants"
	"github.com/lvlagency/gforms-gtm/internal/environment"
)

var (
	// ErrFetchFailure is returned when the package metadata cannot be retrieved, either due to a network error,
	// a non-200 status code or an unreadable body.
	ErrFetchFailure = errors.New("package metadata fetch failed")
	// ErrReportFailure is returned when a lifecycle event cannot be delivered.
	ErrReportFailure = errors.New("lifecycle report failed")
)

// Client talks to the package registry on behalf of one host.
type Client struct {
	baseURL string
	env     environment.Environment

	fetchTimeout  time.Duration
	reportTimeout time.Duration

	httpClient *http.Client
	log        *slog.Logger
}

type options struct {
	baseURL       string
	fetchTimeout  time.Duration
	reportTimeout time.Duration
	httpClient    *http.Client
	log           *slog.Logger
}

// Options represents an optional function to override Client default values.
type Options func(*options)

// WithBaseURL sets the registry base URL.
func WithBaseURL(u string) Options {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithHTTPClient sets the HTTP client used for requests. Per-request timeouts still apply.
func WithHTTPClient(c *http.Client) Options {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger of the client.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// New returns a registry client describing the host as env.
func New(env environment.Environment, args ...Options) *Client {
	opts := options{
		baseURL:       constants.DefaultRegistryURL,
		fetchTimeout:  constants.FetchTimeout,
		reportTimeout: constants.ReportTimeout,
		httpClient:    http.DefaultClient,
		log:           slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Client{
		baseURL:       strings.TrimSuffix(opts.baseURL, "/"),
		env:           env,
		fetchTimeout:  opts.fetchTimeout,
		reportTimeout: opts.reportTimeout,
		httpClient:    opts.httpClient,
		log:           opts.log,
	}
}

// Environment returns the host environment the client reports.
func (c Client) Environment() environment.Environment {
	return c.env
}

// endpoint returns the URL of the package slug, with optional extra path segments.
func (c Client) endpoint(slug string, segments ...string) string {
	p := append([]string{c.baseURL, url.PathEscape(slug)}, segments...)
	return strings.Join(p, "/")
}

// setHeaders sets the headers describing the host on every registry request.
func (c Client) setHeaders(req *http.Request) {
	software := c.env.ServerSoftware
	if software == "" {
		software = environment.UnknownServerSoftware
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", constants.UserAgent)
	req.Header.Set("X-WordPress-Version", c.env.PlatformVersion)
	req.Header.Set("X-PHP-Version", c.env.RuntimeVersion)
	req.Header.Set("X-MySQL-Version", c.env.DatabaseVersion)
	req.Header.Set("X-WordPress-Hostname", c.env.Hostname)
	req.Header.Set("X-Server-Software", software)
}
