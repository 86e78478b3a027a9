package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"golang.org/x/term"

	"github.com/wippyai/ar-placement/config"
	"github.com/wippyai/ar-placement/runtime"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to a TOML config file")
		catalogFile = flag.String("catalog", "", "Object catalog (.toml, .yaml or .json); built-in demo when empty")
		script      = flag.Bool("script", false, "Run the scripted scenario instead of the TUI")
	)
	flag.Parse()

	if err := run(*configFile, *catalogFile, *script); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, catalogFile string, script bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if catalogFile != "" {
		cfg.Catalog.Path = catalogFile
	}

	interactive := !script && term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))

	log, err := newLogger(cfg.Log, interactive)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	runtime.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if interactive {
		return runInteractive(ctx, cfg, log)
	}

	a, err := newApp(cfg, log, logObserver{log: log})
	if err != nil {
		return err
	}
	a.run(ctx)
	defer shutdown(a)

	return runScript(ctx, a)
}

func shutdown(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: shutdown: %v\n", err)
	}
}
