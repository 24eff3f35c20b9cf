package commands

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lvlagency/gforms-gtm/internal/webservice"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type (
	AppConfig    = appConfig
	PluginConfig = pluginConfig
)

// Config returns the configuration of the app.
func (a *App) Config() AppConfig {
	return a.config
}

// NewForTests creates a new App instance for testing purposes, configured through a generated config file.
func NewForTests(t *testing.T, conf *AppConfig, args ...string) *App {
	t.Helper()

	p := GenerateTestConfig(t, conf)
	argsWithConf := append(args, "--config", p)

	a, err := New()
	require.NoError(t, err, "Setup: failed to create app")
	a.cmd.SetArgs(argsWithConf)
	return a
}

// GenerateTestConfig generates a temporary config file for testing.
func GenerateTestConfig(t *testing.T, origConf *AppConfig) string {
	t.Helper()

	var conf appConfig

	if origConf != nil {
		conf = *origConf
	}

	if conf.Verbosity == 0 {
		conf.Verbosity = 2
	}

	if conf.Daemon == (webservice.StaticConfig{}) {
		conf.Daemon = webservice.StaticConfig{
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    20 * time.Second,
			RequestTimeout:  15 * time.Second,
			MaxHeaderBytes:  1 << 13,
			MaxRequestBytes: 1 << 17,
			ListenHost:      "localhost",
			MetricsHost:     "localhost",
		}
	}

	if conf.Plugin.Type == "" {
		conf.Plugin.Type = "plugin"
	}
	if conf.Plugin.Version == "" {
		conf.Plugin.Version = "1.0.0"
	}
	if conf.Plugin.SettingsFile == "" {
		conf.Plugin.SettingsFile = filepath.Join(t.TempDir(), "settings.toml")
	}
	if conf.Plugin.EnvironmentFile == "" {
		conf.Plugin.EnvironmentFile = filepath.Join(t.TempDir(), "environment.ini")
	}

	d, err := yaml.Marshal(conf)
	require.NoError(t, err, "Setup: failed to marshal config for tests")

	confPath := filepath.Join(t.TempDir(), "testconfig.yaml")
	require.NoError(t, os.WriteFile(confPath, d, 0600), "Setup: failed to write config for tests")

	return confPath
}

// SetArgs set some arguments on root command for tests.
func (a *App) SetArgs(args ...string) {
	a.cmd.SetArgs(args)
}

// SetSilenceUsage set the SilenceUsage flag on root command for tests.
func (a *App) SetSilenceUsage(silence bool) {
	a.cmd.SilenceUsage = silence
}

// SetIO redirects the command input and output.
func (a *App) SetIO(in io.Reader, out io.Writer) {
	a.cmd.SetIn(in)
	a.cmd.SetOut(out)
}

// Command returns the root command itself, for flag inspection.
func (a *App) Command() *cobra.Command {
	return a.cmd
}
