package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fahmaliyi/pwvault/cli"
	"github.com/fahmaliyi/pwvault/config"
	"github.com/fahmaliyi/pwvault/storage"
	"github.com/fahmaliyi/pwvault/vault"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("PWVAULT_CONFIG"), "Path to the YAML config file")
	uiMode := flag.String("ui", "", "Front end to start: repl or tui (overrides config)")
	flag.Parse()

	defaultDir, err := cli.DefaultDataDir()
	if err != nil {
		return fmt.Errorf("determine data dir: %w", err)
	}
	if *configPath == "" {
		*configPath = filepath.Join(defaultDir, "config.yaml")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *uiMode != "" {
		cfg.UI.Mode = *uiMode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDir
	}

	setupLogging(cfg.Log)

	set, err := storage.Open(cfg.Storage.Backend, cfg.DataDir)
	if err != nil {
		return err
	}
	defer set.Close()

	m := vault.Open(set.Entries, set.Master,
		vault.HashParams{Time: cfg.Hash.Time, Memory: cfg.Hash.MemoryKiB, Threads: cfg.Hash.Threads},
		vault.Options{SecretLength: cfg.Generator.Length, IncludeSpecial: cfg.Generator.IncludeSpecial},
	)

	sess, master, err := cli.Bootstrap(m, cli.ReadPassword, os.Stdout)
	if err != nil {
		return err
	}
	defer vault.Wipe(master)

	log.Debug().Str("ui", cfg.UI.Mode).Str("backend", cfg.Storage.Backend).Msg("vault unlocked")

	if cfg.UI.Mode == "tui" {
		return cli.RunTUI(m, sess, master, cfg.UI.ClipboardClear())
	}
	cli.NewShell(m, sess, master, os.Stdin, os.Stdout, cfg.UI.ClipboardClear()).Run()
	return nil
}

func setupLogging(c config.LogConfig) {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if c.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
