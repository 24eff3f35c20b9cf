// Package updater plugs the package registry into the host update flow: update checks, package details,
// install guards and lifecycle analytics.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/lvlagency/gforms-gtm/internal/registry"
)

// PackageType is the kind of package the host manages.
type PackageType string

const (
	// Plugin packages are identified by "slug/slug.php".
	Plugin PackageType = "plugin"
	// Theme packages are identified by their slug.
	Theme PackageType = "theme"
)

// Lifecycle actions reported to the registry.
const (
	ActionActivate   = "activate"
	ActionDeactivate = "deactivate"
)

var (
	// ErrVCSCheckout is returned when an update would overwrite a version control checkout.
	ErrVCSCheckout = errors.New("update blocked")
	// ErrUnknownPackageType is returned when parsing an unsupported package type.
	ErrUnknownPackageType = errors.New("unknown package type")
)

// VCSErrorCode is the host error code reported alongside ErrVCSCheckout.
const VCSErrorCode = "git_present"

// ParsePackageType parses a package type name.
func ParsePackageType(s string) (PackageType, error) {
	switch t := PackageType(s); t {
	case Plugin, Theme:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPackageType, s)
}

// Registry is the package registry the checker talks to.
type Registry interface {
	Fetch(ctx context.Context, slug string) (registry.Metadata, error)
	Report(ctx context.Context, slug, action string) error
}

// Checker checks one installed package against the registry.
// The registry metadata is fetched at most once per Checker once successfully retrieved.
type Checker struct {
	slug        string
	installDir  string
	version     string
	packageType PackageType
	registry    Registry

	mu     sync.Mutex
	remote *registry.Metadata

	log *slog.Logger
}

type options struct {
	packageType PackageType
	log         *slog.Logger
}

// Options represents an optional function to override Checker default values.
type Options func(*options)

// WithPackageType sets the kind of package checked. Plugin is the default.
func WithPackageType(t PackageType) Options {
	return func(o *options) {
		o.packageType = t
	}
}

// WithLogger sets the logger of the checker.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// New returns a Checker for the package whose main file is file, currently installed at version.
// The package slug is the name of the directory holding file.
func New(file, version string, r Registry, args ...Options) *Checker {
	opts := options{
		packageType: Plugin,
		log:         slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	dir := filepath.Dir(file)
	return &Checker{
		slug:        filepath.Base(dir),
		installDir:  dir,
		version:     version,
		packageType: opts.packageType,
		registry:    r,
		log:         opts.log,
	}
}

// Slug returns the package slug.
func (c *Checker) Slug() string {
	return c.slug
}

// Type returns the kind of package checked.
func (c *Checker) Type() PackageType {
	return c.packageType
}

// Identifier returns the key of the package in the host update lists.
func (c *Checker) Identifier() string {
	if c.packageType == Plugin {
		return c.slug + "/" + c.slug + ".php"
	}
	return c.slug
}

// remoteData returns the registry metadata of the package, fetching it on first use.
// Failures are not memoized, so a later call retries.
func (c *Checker) remoteData(ctx context.Context) (registry.Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remote != nil {
		return *c.remote, nil
	}

	m, err := c.registry.Fetch(ctx, c.slug)
	if err != nil {
		return registry.Metadata{}, err
	}
	c.remote = &m
	return m, nil
}

// OnActivate reports the activation of the package.
func (c *Checker) OnActivate(ctx context.Context) {
	c.ReportLifecycleEvent(ctx, ActionActivate)
}

// OnDeactivate reports the deactivation of the package.
func (c *Checker) OnDeactivate(ctx context.Context) {
	c.ReportLifecycleEvent(ctx, ActionDeactivate)
}

// ReportLifecycleEvent sends action to the registry analytics. Delivery is best effort: failures are only logged.
func (c *Checker) ReportLifecycleEvent(ctx context.Context, action string) {
	if err := c.registry.Report(ctx, c.slug, action); err != nil {
		c.log.Debug("Failed to report lifecycle event", "slug", c.slug, "action", action, "error", err)
	}
}
