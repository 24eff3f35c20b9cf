// Package commands provides the gforms-gtm command line: the bridge daemon and the one-shot commands
// used by host cron jobs and operators.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/lvlagency/gforms-gtm/internal/cli"
	"github.com/lvlagency/gforms-gtm/internal/config"
	"github.com/lvlagency/gforms-gtm/internal/confirmation"
	"github.com/lvlagency/gforms-gtm/internal/constants"
	"github.com/lvlagency/gforms-gtm/internal/environment"
	"github.com/lvlagency/gforms-gtm/internal/plugin"
	"github.com/lvlagency/gforms-gtm/internal/registry"
	"github.com/lvlagency/gforms-gtm/internal/updater"
	"github.com/lvlagency/gforms-gtm/internal/webservice"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	daemon   *webservice.Server
	quitting bool

	ready     chan struct{}
	readyOnce sync.Once
}

// appConfig holds the configuration for the application.
type appConfig struct {
	Verbosity int
	JSONLogs  bool
	Plugin    pluginConfig
	Daemon    webservice.StaticConfig
}

// pluginConfig locates the installed package and its collaborators.
type pluginConfig struct {
	File            string
	Version         string
	Type            string
	RegistryURL     string
	EnvironmentFile string
	SettingsFile    string
}

// New creates a new App instance with default values.
func New() (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := App{
		ready:  make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}

	a.cmd = &cobra.Command{
		Use:   constants.CmdName,
		Short: "Gravity Forms tag manager adapter",
		Long: `Gravity Forms tag manager adapter.

Pushes form submissions to the tag manager dataLayer and keeps the adapter up to date from its package registry.
The host calls it either through the HTTP bridge started by "serve", or through the one-shot commands.`,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetVerbosity(a.config.Verbosity) // Set verbosity before loading config
			if err := cli.InitViperConfig(constants.CmdName, a.cmd, a.viper); err != nil {
				return err
			}
			if err := a.viper.Unmarshal(&a.config); err != nil {
				return fmt.Errorf("unable to strictly decode configuration into struct: %w", err)
			}

			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs)
			slog.Debug("got app config", "config", a.config)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}
	a.viper = viper.New()
	a.cmd.CompletionOptions.HiddenDefaultCmd = true

	installRootCmd(&a)
	cli.InstallConfigFlag(a.cmd)

	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}

	a.installServe()
	a.installCheck()
	a.installInfo()
	a.installPreInstall()
	a.installLifecycle()
	a.installRender()
	a.installSettings()
	a.installVersion()

	return &a, nil
}

func installRootCmd(app *App) {
	cmd := app.cmd

	defaultConf := pluginConfig{
		Version:         constants.Version,
		Type:            string(updater.Plugin),
		RegistryURL:     constants.DefaultRegistryURL,
		EnvironmentFile: constants.GetDefaultEnvironmentPath(),
		SettingsFile:    constants.GetDefaultSettingsPath(),
	}

	cmd.PersistentFlags().CountVarP(&app.config.Verbosity, "verbose", "v", "issue INFO (-v), DEBUG (-vv)")
	cmd.PersistentFlags().BoolVar(&app.config.JSONLogs, "json-logs", false, "write logs as JSON on stderr")

	cmd.PersistentFlags().StringVar(&app.config.Plugin.File, "plugin-file", defaultConf.File, "main file of the installed package, inside its install directory")
	cmd.PersistentFlags().StringVar(&app.config.Plugin.Version, "installed-version", defaultConf.Version, "installed version of the package")
	cmd.PersistentFlags().StringVar(&app.config.Plugin.Type, "package-type", defaultConf.Type, "kind of package installed (plugin or theme)")
	cmd.PersistentFlags().StringVar(&app.config.Plugin.RegistryURL, "registry-url", defaultConf.RegistryURL, "base URL of the package registry")
	cmd.PersistentFlags().StringVar(&app.config.Plugin.EnvironmentFile, "environment-file", defaultConf.EnvironmentFile, "host environment file written by the host")
	cmd.PersistentFlags().StringVar(&app.config.Plugin.SettingsFile, "settings-file", defaultConf.SettingsFile, "settings file of the confirmation presentation")

	for _, f := range []string{"plugin-file", "environment-file", "settings-file"} {
		if err := cmd.MarkPersistentFlagFilename(f); err != nil {
			// This should never happen.
			panic(fmt.Sprintf("failed to mark %s flag as filename: %v", f, err))
		}
	}
}

// Run executes the command and associated process, returning an error if any.
func (a *App) Run() error {
	return a.cmd.ExecuteContext(a.ctx)
}

// UsageError returns if the error is a command parsing or runtime one.
func (a App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// Hup prints all goroutine stack traces and return false to signal you shouldn't quit.
func (a App) Hup() (shouldQuit bool) {
	buf := make([]byte, 1<<16)
	runtime.Stack(buf, true)
	fmt.Printf("%s", buf)
	return false
}

// Quit gracefully shuts down the daemon and interrupts pending registry requests.
func (a *App) Quit() {
	a.mu.Lock()
	a.quitting = true
	d := a.daemon
	a.mu.Unlock()

	if d != nil {
		d.Quit(false)
	}
	a.cancel()
}

// WaitReady waits for the daemon to be ready.
func (a *App) WaitReady() {
	<-a.ready
}

// RootCmd returns the root command.
func (a App) RootCmd() cobra.Command {
	return *a.cmd
}

// settings returns the settings manager, loaded.
func (a *App) settings() (*config.Manager, error) {
	cm := config.New(a.config.Plugin.SettingsFile, config.WithLogger(slog.Default()))
	if err := cm.Load(); err != nil {
		return nil, fmt.Errorf("failed to load settings: %v", err)
	}
	return cm, nil
}

// newPlugin builds the package service from the application configuration.
func (a *App) newPlugin(s confirmation.Settings) (*plugin.Plugin, error) {
	c := a.config.Plugin
	if c.File == "" {
		return nil, errors.New("no package main file configured, set it with --plugin-file")
	}

	t, err := updater.ParsePackageType(c.Type)
	if err != nil {
		return nil, err
	}

	env, err := environment.Load(c.EnvironmentFile, environment.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to load host environment: %v", err)
	}

	r := registry.New(env,
		registry.WithBaseURL(c.RegistryURL),
		registry.WithLogger(slog.Default()))

	return plugin.New(
		confirmation.New(s, confirmation.WithLogger(slog.Default())),
		r, c.File, c.Version,
		plugin.WithPackageType(t),
		plugin.WithLogger(slog.Default())), nil
}

func defaultStaticConfig() webservice.StaticConfig {
	return webservice.StaticConfig{
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    20 * time.Second,
		RequestTimeout:  15 * time.Second,
		MaxHeaderBytes:  1 << 13, // 8 KB
		MaxRequestBytes: 1 << 20, // 1 MB

		ListenHost:  "localhost",
		ListenPort:  8080,
		MetricsHost: "localhost",
		MetricsPort: 2112,
	}
}
