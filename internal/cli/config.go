// Package cli provides utility functions for command line interface applications.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lvlagency/gforms-gtm/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// InitViperConfig initializes the Viper configuration for a command.
//
// The configuration file is either the one passed with --config, or the first cmdName.{yaml,toml,json}
// found in ConfigDirs. Environment variables prefixed with the upper-cased command name override file values.
func InitViperConfig(cmdName string, cmd *cobra.Command, vip *viper.Viper) error {
	if v, err := cmd.Flags().GetString("config"); err == nil && v != "" {
		vip.SetConfigFile(v)
	} else {
		vip.SetConfigName(cmdName)
		for _, d := range ConfigDirs(cmdName) {
			vip.AddConfigPath(d)
		}
	}

	if err := vip.ReadInConfig(); err != nil {
		var e viper.ConfigFileNotFoundError
		if !errors.As(err, &e) {
			return fmt.Errorf("invalid configuration file: %w", err)
		}
		slog.Info("No configuration file.\nWe will only use the defaults, env variables or flags.", "error", e)
	} else {
		slog.Info("Using configuration file", "file", vip.ConfigFileUsed())
	}

	return bindEnv(vip, EnvPrefix(cmdName))
}

// ConfigDirs returns the directories searched for the configuration file, by priority.
func ConfigDirs(cmdName string) []string {
	dirs := []string{"."}
	if d := constants.GetDefaultConfigPath(); d != constants.DefaultAppFolder {
		dirs = append(dirs, d)
	}

	if runtime.GOOS == "windows" {
		dirs = append(dirs, filepath.Join(`C:\ProgramData`, cmdName))
	} else {
		dirs = append(dirs, filepath.Join("/etc", cmdName), filepath.Join("/usr/local/etc", cmdName))
	}

	binPath, err := os.Executable()
	if err != nil {
		slog.Warn("Failed to get current executable path, not adding it as a config dir", "error", err)
		return dirs
	}
	return append(dirs, filepath.Dir(binPath))
}

// EnvPrefix returns the prefix of the environment variables overriding the configuration of cmdName.
// Environment variable names can't carry dashes.
func EnvPrefix(cmdName string) string {
	return strings.ToUpper(strings.ReplaceAll(cmdName, "-", "_"))
}

// bindEnv binds every environment variable starting with prefix to its configuration key:
// GFORMS_GTM_DAEMON_READTIMEOUT sets daemon.readtimeout.
func bindEnv(vip *viper.Viper, prefix string) error {
	vip.SetEnvPrefix(prefix)
	vip.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows, so nested keys must be bound for Unmarshal to
	// see them. More context on https://github.com/spf13/viper/pull/1429.
	prefix += "_"
	for _, e := range os.Environ() {
		name, _, _ := strings.Cut(e, "=")
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		k := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, prefix), "_", "."))
		if err := vip.BindEnv(k, name); err != nil {
			return fmt.Errorf("could not bind environment variable %s: %w", name, err)
		}
	}
	return nil
}

// InstallConfigFlag adds a config flag to the command.
func InstallConfigFlag(cmd *cobra.Command) *string {
	return cmd.PersistentFlags().String("config", "", "use a specific configuration file")
}
