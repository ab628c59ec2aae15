package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/ishanjain/dohwrap/pkg/config"
	"github.com/ishanjain/dohwrap/pkg/daemon"
	"github.com/ishanjain/dohwrap/pkg/netif"
	"github.com/ishanjain/dohwrap/pkg/setup"
	"github.com/ishanjain/dohwrap/pkg/supervisor"
)

var version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	paths, err := config.ResolvePaths()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if isSetup(args) {
		return runSetup(paths)
	}

	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.Log.Verbose)

	d, err := daemon.New(daemon.Options{
		Paths:   paths,
		Config:  cfg,
		Args:    args,
		Version: version,
		Out:     os.Stdout,
		Logger:  logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := d.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return exitCode(code, err)
}

func isSetup(args []string) bool {
	return len(args) > 0 && strings.EqualFold(args[0], "setup")
}

func runSetup(paths config.Paths) int {
	cfg := setupConfig(paths, os.Stderr)
	logger := newLogger(cfg.Log.Verbose)

	wizard := &setup.Wizard{
		In:      os.Stdin,
		Out:     os.Stdout,
		Version: version,
		Logger:  logger.WithName("setup"),
	}
	lister := netif.NewLister(netif.Config{Logger: logger})
	if _, err := wizard.RunAndSave(lister, cfg.AllowListPath(paths)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// setupConfig loads the config for the setup wizard. Setup only needs the
// allow-list location, so a broken config falls back to the defaults.
func setupConfig(paths config.Paths, stderr io.Writer) *config.Config {
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		cfg = config.Default()
		fmt.Fprintf(stderr, "Warning: %v\n", err)
		fmt.Fprintf(stderr, "Warning: using the default allow-list %s\n", cfg.AllowListPath(paths))
	}
	return cfg
}

// exitCode maps the proxy result to the process exit code. A start failure or
// a proxy killed by a signal (negative code) exits with 1.
func exitCode(code int, err error) int {
	if errors.Is(err, supervisor.ErrStart) || code < 0 {
		return 1
	}
	return code
}

func newLogger(verbose bool) logr.Logger {
	verbosity := 0
	if verbose {
		verbosity = 1
	}
	return funcr.New(func(p, a string) {
		if p != "" {
			fmt.Printf("%s: %s\n", p, a)
		} else {
			fmt.Println(a)
		}
	}, funcr.Options{Verbosity: verbosity})
}
