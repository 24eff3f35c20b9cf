// Package environment describes the host the plugin is installed on, as reported to the package registry.
package environment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/ubuntu/decorate"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/ini.v1"
)

// UnknownServerSoftware is reported when the web server does not identify itself.
const UnknownServerSoftware = "?"

// Environment is the host description sent along registry requests.
type Environment struct {
	RuntimeVersion  string `mapstructure:"php-version"`
	PlatformVersion string `mapstructure:"wordpress-version"`
	DatabaseVersion string `mapstructure:"mysql-version"`
	Hostname        string `mapstructure:"hostname"`
	ServerSoftware  string `mapstructure:"server-software"`
}

// Default returns an environment about which nothing is known.
func Default() Environment {
	return Environment{ServerSoftware: UnknownServerSoftware}
}

type options struct {
	log *slog.Logger
}

// Options represents an optional function to override Load default values.
type Options func(*options)

// WithLogger sets the logger used while loading.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// Load reads the environment file the host writes at path.
//
// The file is an INI file with the sections php, wordpress, mysql and server. It may be UTF-8 or UTF-16,
// as long as UTF-16 content starts with a byte order mark.
// A missing file is not an error: the Default environment is returned.
func Load(path string, args ...Options) (env Environment, err error) {
	defer decorate.OnError(&err, "could not load host environment from %s", path)

	opts := options{log: slog.Default()}
	for _, opt := range args {
		opt(&opts)
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		opts.log.Debug("Host environment file not found, using defaults", "path", path)
		return Default(), nil
	}
	if err != nil {
		return Environment{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return Environment{}, fmt.Errorf("could not decode file: %v", err)
	}

	env, err = Parse(data)
	if err != nil {
		return Environment{}, err
	}
	opts.log.Debug("Loaded host environment", "path", path, "environment", env)
	return env, nil
}

// Parse reads an environment from UTF-8 INI content.
func Parse(data []byte) (Environment, error) {
	cfg, err := ini.Load(bytes.TrimPrefix(data, []byte("\ufeff")))
	if err != nil {
		return Environment{}, fmt.Errorf("invalid INI content: %v", err)
	}

	env := Environment{
		RuntimeVersion:  cfg.Section("php").Key("version").String(),
		PlatformVersion: cfg.Section("wordpress").Key("version").String(),
		DatabaseVersion: cfg.Section("mysql").Key("version").String(),
		Hostname:        Hostname(cfg.Section("wordpress").Key("home_url").String()),
		ServerSoftware:  cfg.Section("server").Key("software").String(),
	}
	if env.ServerSoftware == "" {
		env.ServerSoftware = UnknownServerSoftware
	}
	return env, nil
}

// Hostname returns the host part of a site URL, without port.
// Bare host names are accepted. An unparsable URL yields an empty host name.
func Hostname(siteURL string) string {
	siteURL = strings.TrimSpace(siteURL)
	if siteURL == "" {
		return ""
	}
	if !strings.Contains(siteURL, "://") {
		siteURL = "//" + siteURL
	}

	u, err := url.Parse(siteURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
