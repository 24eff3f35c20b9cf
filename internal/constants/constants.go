// Package constants is responsible for defining the constants used in the application.
// It also provides utility functions to get the default configuration paths.
package constants

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	// CmdName is the name of the command line tool.
	CmdName = "gforms-gtm"

	// DefaultAppFolder is the name of the default root folder.
	DefaultAppFolder = "gforms-gtm"

	// DefaultLogLevel is the default log level selected without any verbosity flags.
	DefaultLogLevel = slog.LevelWarn

	// SettingsFileName is the default base name of the operator settings file.
	SettingsFileName = "settings.toml"

	// EnvironmentFileName is the default base name of the host environment file.
	EnvironmentFileName = "environment.ini"
)

// Version is the version of the adapter, reported as the installed version to the registry.
var Version = "1.0.0"

const (
	// GlobalNamespace prefixes every hook, event and handle of the adapter.
	GlobalNamespace = "lvl"

	// PluginNamespace identifies the adapter inside the global namespace.
	PluginNamespace = "gravityforms/gtm"

	// CustomEntryPrefix marks entry meta keys surfaced as-is into the submit event.
	CustomEntryPrefix = GlobalNamespace + ":"

	// SubmitEventName is the dataLayer event pushed after every submission.
	SubmitEventName = GlobalNamespace + ".form_submit"

	// FormIDPrefix prefixes the composite form identifier.
	FormIDPrefix = "gravity-forms:"

	// ProviderPrefix prefixes the composite site identifier.
	ProviderPrefix = "wordpress:"

	// RedirectMarker is present in confirmations rendered with the form builder's own client redirect.
	RedirectMarker = "gformRedirect"
)

const (
	// DefaultRedirectDelay is the delay before the client-side redirect fires.
	DefaultRedirectDelay = 2000 * time.Millisecond

	// DefaultInterstitialText is shown while the redirect is pending.
	DefaultInterstitialText = "We are processing your submission. Please wait..."

	// DefaultSpinnerColor is the CSS color of the interstitial spinner.
	DefaultSpinnerColor = "#000"

	// SpinnerColorVar is the CSS custom property carrying the spinner color.
	SpinnerColorVar = "--gform-redirect-spinner-color"

	// StylesheetPath is the stylesheet path relative to the plugin directory.
	StylesheetPath = "public/styles.css"
)

const (
	// DefaultRegistryURL is the base URL of the package registry.
	DefaultRegistryURL = "https://wordpress.level-cdn.com/api/packages"

	// UserAgent identifies the updater on every registry request.
	UserAgent = "Lvl/WordPress/Updater"

	// FetchTimeout bounds the version check request.
	FetchTimeout = 10 * time.Second

	// ReportTimeout bounds the lifecycle analytics request.
	ReportTimeout = 5 * time.Second

	// VCSMarker is the directory whose presence blocks updates of a checkout.
	VCSMarker = ".git"
)

// Namespace returns the adapter namespace, with suffix joined by a slash when not empty.
func Namespace(suffix string) string {
	base := GlobalNamespace + ":" + PluginNamespace
	if suffix == "" {
		return base
	}
	return base + "/" + suffix
}

type options struct {
	baseDir func() (string, error)
}

type option func(*options)

// GetDefaultConfigPath is the default path to the configuration directory.
func GetDefaultConfigPath(opts ...option) string {
	o := options{baseDir: os.UserConfigDir}
	for _, opt := range opts {
		opt(&o)
	}

	return filepath.Join(getBaseDir(o.baseDir), DefaultAppFolder)
}

// GetDefaultSettingsPath is the default path to the operator settings file.
func GetDefaultSettingsPath(opts ...option) string {
	return filepath.Join(GetDefaultConfigPath(opts...), SettingsFileName)
}

// GetDefaultEnvironmentPath is the default path to the host environment file.
func GetDefaultEnvironmentPath(opts ...option) string {
	return filepath.Join(GetDefaultConfigPath(opts...), EnvironmentFileName)
}

// getBaseDir is a helper function to handle the case where the baseDir function returns an error, and instead return an empty string.
func getBaseDir(baseDirFunc func() (string, error)) string {
	dir, err := baseDirFunc()
	if err != nil {
		return ""
	}
	return dir
}
