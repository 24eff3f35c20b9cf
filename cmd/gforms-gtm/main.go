// Package main is the entry point of the gforms-gtm command.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lvlagency/gforms-gtm/cmd/gforms-gtm/commands"
)

const (
	exitOK = iota
	exitFailure
	exitUsage
)

func main() {
	a, err := commands.New()
	if err != nil {
		slog.Error(err.Error())
		os.Exit(exitFailure)
	}

	os.Exit(run(a))
}

type app interface {
	Run() error
	UsageError() bool
	Hup() bool
	Quit()
}

func run(a app) int {
	stop := handleSignals(a)
	defer stop()

	err := a.Run()
	switch {
	case err == nil:
		return exitOK
	case a.UsageError():
		slog.Error(err.Error())
		return exitUsage
	default:
		slog.Error(err.Error())
		return exitFailure
	}
}

// handleSignals forwards process signals to a until the returned stop function is called.
func handleSignals(a app) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		dispatchSignals(a, sigs)
	}()

	return func() {
		signal.Stop(sigs)
		close(sigs)
		<-done
	}
}

// dispatchSignals quits a on the first termination signal, or on a SIGHUP that a asks to exit on.
func dispatchSignals(a app, sigs <-chan os.Signal) {
	for sig := range sigs {
		slog.Debug("Received signal", "signal", sig)
		if sig == syscall.SIGHUP && !a.Hup() {
			continue
		}
		a.Quit()
		return
	}
	slog.Debug("Signal channel closed")
}
