// Command askbook maintains a single-sided ask book from a stream of add,
// remove and buy commands and prints the cost of a closing buy.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"askbook/app"
	"askbook/config"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	transport := flag.String("transport", "", "input transport: stdin, file, mmap or journal")
	input := flag.String("input", "", "input path for file, mmap and journal transports")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "askbook: load config %q: %v\n", *configPath, err)
		os.Exit(1)
	}
	if *transport != "" {
		cfg.Input.Transport = *transport
	}
	if *input != "" {
		cfg.Input.Path = *input
		if *transport == "" && cfg.Input.Transport == "stdin" {
			cfg.Input.Transport = "mmap"
		}
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	// ---- Logger ----
	// stdout carries the result line only
	logger := newLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// ---- Run ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, logger)
	err = application.Run(ctx, os.Stdout)
	application.Close()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("interrupted")
		} else {
			logger.Error("askbook failed", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}

func newLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
