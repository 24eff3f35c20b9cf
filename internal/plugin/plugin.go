// Package plugin assembles the confirmation adapter and the update checker into the set of host extension
// points the adapter serves.
package plugin

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/lvlagency/gforms-gtm/internal/confirmation"
	"github.com/lvlagency/gforms-gtm/internal/updater"
)

// Bridge endpoints serving the host extension points.
const (
	PathConfirmation = "/confirmation"
	PathFormArgs     = "/form-args"
	PathFormTag      = "/form-tag"
	PathCSSVars      = "/css-vars"
	PathStylesheet   = "/stylesheet"
	PathUpdateCheck  = "/updates/check"
	PathUpdateInfo   = "/updates/info"
	PathPreInstall   = "/updates/pre-install"
	PathLifecycle    = "/lifecycle/"
	PathHooks        = "/hooks"
	PathVersion      = "/version"
)

// HookKind tells whether the host hook transforms a value or only notifies.
type HookKind string

const (
	// Filter hooks return a, possibly modified, value to the host.
	Filter HookKind = "filter"
	// Action hooks return nothing to the host.
	Action HookKind = "action"
)

// Hook is a host extension point and the bridge endpoint serving it.
type Hook struct {
	Name        string   `json:"name"`
	Kind        HookKind `json:"kind"`
	Priority    int      `json:"priority"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Description string   `json:"description"`
}

// Plugin is the adapter as installed on one host.
type Plugin struct {
	adapter  *confirmation.Adapter
	registry updater.Registry

	file        string
	version     string
	packageType updater.PackageType

	log *slog.Logger
}

type options struct {
	packageType updater.PackageType
	log         *slog.Logger
}

// Options represents an optional function to override Plugin default values.
type Options func(*options)

// WithPackageType sets the kind of package the adapter is installed as.
func WithPackageType(t updater.PackageType) Options {
	return func(o *options) {
		o.packageType = t
	}
}

// WithLogger sets the logger handed to the checkers.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// New returns the plugin installed with its main file at file, in version.
func New(adapter *confirmation.Adapter, r updater.Registry, file, version string, args ...Options) *Plugin {
	opts := options{
		packageType: updater.Plugin,
		log:         slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Plugin{
		adapter:     adapter,
		registry:    r,
		file:        file,
		version:     version,
		packageType: opts.packageType,
		log:         opts.log,
	}
}

// Adapter returns the confirmation adapter.
func (p *Plugin) Adapter() *confirmation.Adapter {
	return p.adapter
}

// Version returns the installed version.
func (p *Plugin) Version() string {
	return p.version
}

// Checker returns a new update checker. Each host request gets its own, so registry metadata is only
// shared within a request.
func (p *Plugin) Checker() *updater.Checker {
	return updater.New(p.file, p.version, p.registry,
		updater.WithPackageType(p.packageType),
		updater.WithLogger(p.log))
}

// Hooks returns the host extension points served, in registration order.
func (p *Plugin) Hooks() []Hook {
	updateHook, infoHook := "pre_set_site_transient_update_plugins", "plugins_api"
	if p.packageType == updater.Theme {
		updateHook, infoHook = "pre_set_site_transient_update_themes", "themes_api"
	}

	return []Hook{
		{Name: "wp_head", Kind: Action, Priority: 1, Method: http.MethodGet, Path: PathCSSVars,
			Description: "Prints the spinner color as a CSS custom property."},
		{Name: "gform_confirmation", Kind: Filter, Priority: 20, Method: http.MethodPost, Path: PathConfirmation,
			Description: "Pushes the submit event and delays redirects behind an interstitial."},
		{Name: "gform_form_args", Kind: Filter, Priority: 10, Method: http.MethodPost, Path: PathFormArgs,
			Description: "Forces AJAX submission so confirmations render in place."},
		{Name: "gform_form_tag", Kind: Filter, Priority: 20, Method: http.MethodPost, Path: PathFormTag,
			Description: "Adds the form name and identifier to the form tag."},
		{Name: "wp_enqueue_scripts", Kind: Action, Priority: 10, Method: http.MethodGet, Path: PathStylesheet,
			Description: "Enqueues the interstitial stylesheet."},
		{Name: updateHook, Kind: Filter, Priority: 10, Method: http.MethodPost, Path: PathUpdateCheck,
			Description: "Adds the registry update to the host update list."},
		{Name: infoHook, Kind: Filter, Priority: 20, Method: http.MethodPost, Path: PathUpdateInfo,
			Description: "Answers package detail requests from the registry."},
		{Name: "upgrader_pre_install", Kind: Filter, Priority: 10, Method: http.MethodPost, Path: PathPreInstall,
			Description: "Blocks updates of version control checkouts."},
		{Name: "activate_" + p.hookBasename(), Kind: Action, Priority: 10, Method: http.MethodPost, Path: PathLifecycle + updater.ActionActivate,
			Description: "Reports the activation to the registry."},
		{Name: "deactivate_" + p.hookBasename(), Kind: Action, Priority: 10, Method: http.MethodPost, Path: PathLifecycle + updater.ActionDeactivate,
			Description: "Reports the deactivation to the registry."},
	}
}

// hookBasename is the package main file relative to the packages directory, as used in activation hook names.
func (p *Plugin) hookBasename() string {
	return filepath.Base(filepath.Dir(p.file)) + "/" + filepath.Base(p.file)
}
