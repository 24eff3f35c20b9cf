// Package config provides the settings manager: it loads, watches and updates the TOML file holding the
// operator overrides of the confirmation presentation.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/lvlagency/gforms-gtm/internal/constants"
	"github.com/lvlagency/gforms-gtm/internal/fileutils"
	"github.com/ubuntu/decorate"
)

const (
	// KeyRedirectDelay is the redirect delay setting, in milliseconds.
	KeyRedirectDelay = "redirect_delay_ms"
	// KeyInterstitialText is the interstitial message setting.
	KeyInterstitialText = "interstitial_text"
	// KeySpinnerColor is the spinner color setting.
	KeySpinnerColor = "spinner_color"
)

// Keys lists the settings keys in display order.
var Keys = []string{KeyRedirectDelay, KeyInterstitialText, KeySpinnerColor}

// ErrUnknownKey is returned when setting a key that does not exist.
var ErrUnknownKey = errors.New("unknown setting")

// Conf is the settings file content. Unset keys fall back to defaults.
type Conf struct {
	RedirectDelayMS  *int64  `toml:"redirect_delay_ms,omitempty"`
	InterstitialText *string `toml:"interstitial_text,omitempty"`
	SpinnerColor     *string `toml:"spinner_color,omitempty"`
}

// MaxRedirectDelayMS is the longest redirect delay a time.Duration holds.
const MaxRedirectDelayMS = math.MaxInt64 / int64(time.Millisecond)

func (c Conf) validate() error {
	if c.RedirectDelayMS == nil {
		return nil
	}
	if ms := *c.RedirectDelayMS; ms < 0 || ms > MaxRedirectDelayMS {
		return fmt.Errorf("%s must be between 0 and %d, got %d", KeyRedirectDelay, MaxRedirectDelayMS, ms)
	}
	return nil
}

// Manager manages the settings file.
type Manager struct {
	config     Conf
	lock       sync.RWMutex
	configPath string

	log *slog.Logger
}

type options struct {
	Logger *slog.Logger
}

// Options represents an optional function to override Manager default values.
type Options func(*options)

// WithLogger is an option to set the logger for the Manager.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.Logger = l
	}
}

// New creates a new settings manager for the file at path.
// Nothing is read until Load or Watch is called, so every setting starts at its default.
func New(path string, args ...Options) *Manager {
	opts := options{
		Logger: slog.Default(),
	}

	for _, opt := range args {
		opt(&opts)
	}

	return &Manager{
		configPath: path,
		log:        opts.Logger,
	}
}

// Path returns the path of the settings file.
func (cm *Manager) Path() string {
	return cm.configPath
}

// Load reads the settings file and updates the internal state.
// A missing file resets every setting to its default. On error, the previous state is kept.
func (cm *Manager) Load() error {
	newConfig, err := readFile(cm.configPath)
	if err != nil {
		return err
	}

	cm.lock.Lock()
	cm.config = newConfig
	cm.lock.Unlock()

	cm.log.Info("Settings loaded", "path", cm.configPath)
	return nil
}

func readFile(path string) (Conf, error) {
	var c Conf
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("reading settings file: %w", err)
	}

	if _, err := toml.Decode(string(data), &c); err != nil {
		return Conf{}, fmt.Errorf("decoding settings TOML: %w", err)
	}
	if err := c.validate(); err != nil {
		return Conf{}, fmt.Errorf("invalid settings: %w", err)
	}
	return c, nil
}

// Watch starts watching the settings file for changes.
//
// It returns two channels: one for changes which result in a successful load and another for unrecoverable watcher errors.
// The directory holding the settings file must exist.
func (cm *Manager) Watch(ctx context.Context) (changes <-chan struct{}, errs <-chan error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create watcher: %v", err)
	}

	configDir, _ := filepath.Split(cm.configPath)
	if configDir == "" {
		configDir = "."
	}
	if err := watcher.Add(configDir); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("failed to add directory %s to watcher: %v", configDir, err)
	}

	cm.log.Info("Watching settings directory", "dir", configDir)
	changesCh := make(chan struct{}, 1)
	errorsCh := make(chan error, 1)

	if err := cm.Load(); err != nil {
		cm.log.Warn("Error loading initial settings", "err", err)
	}

	target := filepath.Clean(cm.configPath)

	go func() {
		defer close(changesCh)
		defer close(errorsCh)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				cm.log.Info("Settings watcher stopped")
				return
			case event, ok := <-watcher.Events:
				if !ok {
					errorsCh <- fmt.Errorf("watcher events channel closed unexpectedly")
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if filepath.Clean(event.Name) != target {
					continue
				}

				cm.log.Debug("Settings file changed. Reloading...", "op", event.Op.String())
				if err := cm.Load(); err != nil {
					cm.log.Warn("Error reloading settings", "err", err)
					continue
				}

				select {
				case changesCh <- struct{}{}:
				default:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					errorsCh <- fmt.Errorf("watcher errors channel closed unexpectedly")
					return
				}
				cm.log.Warn("Watcher error", "err", err)
			}
		}
	}()

	return changesCh, errorsCh, nil
}

// Set updates a single setting and writes the settings file atomically.
// Other settings already in the file are kept as is.
func (cm *Manager) Set(key, value string) (err error) {
	defer decorate.OnError(&err, "could not set %q", key)

	cm.lock.Lock()
	defer cm.lock.Unlock()

	// Start from the file rather than memory, so concurrent external edits are not reverted.
	c, err := readFile(cm.configPath)
	if err != nil {
		return err
	}

	switch key {
	case KeyRedirectDelay:
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%s must be an integer number of milliseconds: %v", key, err)
		}
		c.RedirectDelayMS = &ms
	case KeyInterstitialText:
		c.InterstitialText = &value
	case KeySpinnerColor:
		c.SpinnerColor = &value
	default:
		return fmt.Errorf("%w: %s, expected one of %v", ErrUnknownKey, key, Keys)
	}

	if err := c.validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("could not encode settings: %v", err)
	}
	if err := fileutils.AtomicWrite(cm.configPath, buf.Bytes(), 0600); err != nil {
		return err
	}

	cm.config = c
	cm.log.Debug("Wrote settings file", "path", cm.configPath, "key", key)
	return nil
}

// Get returns the effective value of key, as a string.
func (cm *Manager) Get(key string) (string, error) {
	switch key {
	case KeyRedirectDelay:
		return strconv.FormatInt(cm.RedirectDelay().Milliseconds(), 10), nil
	case KeyInterstitialText:
		return cm.InterstitialText(), nil
	case KeySpinnerColor:
		return cm.SpinnerColor(), nil
	}
	return "", fmt.Errorf("%w: %s, expected one of %v", ErrUnknownKey, key, Keys)
}

// IsKey reports whether key is a known setting.
func IsKey(key string) bool {
	return slices.Contains(Keys, key)
}

// RedirectDelay returns how long to show the interstitial before redirecting.
func (cm *Manager) RedirectDelay() time.Duration {
	cm.lock.RLock()
	defer cm.lock.RUnlock()
	if cm.config.RedirectDelayMS == nil {
		return constants.DefaultRedirectDelay
	}
	return time.Duration(*cm.config.RedirectDelayMS) * time.Millisecond
}

// InterstitialText returns the message shown while a redirect is pending.
func (cm *Manager) InterstitialText() string {
	cm.lock.RLock()
	defer cm.lock.RUnlock()
	if cm.config.InterstitialText == nil {
		return constants.DefaultInterstitialText
	}
	return *cm.config.InterstitialText
}

// SpinnerColor returns the color of the interstitial spinner.
func (cm *Manager) SpinnerColor() string {
	cm.lock.RLock()
	defer cm.lock.RUnlock()
	if cm.config.SpinnerColor == nil {
		return constants.DefaultSpinnerColor
	}
	return *cm.config.SpinnerColor
}
