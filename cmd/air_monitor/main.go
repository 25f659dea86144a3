// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/air_monitor/internal/app"
	"github.com/relabs-tech/air_monitor/internal/config"
	"github.com/relabs-tech/air_monitor/internal/report"
)

const defaultConfigPath = "./air_monitor.txt"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	mode := flag.String("mode", "", "sensor mode: dual, co2 or env (overrides MODE)")
	jsonOut := flag.Bool("json", false, "write one JSON object per cycle instead of text")
	flag.Parse()

	os.Exit(run(*configPath, *mode, *jsonOut))
}

func run(configPath, mode string, jsonOut bool) int {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return 1
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		log.Errorf("failed to load config: %v", err)
		return 1
	}
	if mode != "" {
		if err := cfg.Set("MODE", mode); err != nil {
			log.Errorf("invalid -mode: %v", err)
			return 1
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Errorf("invalid config: %v", err)
		return 1
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	log.Infof("starting air monitor (%s mode)", cfg.Mode)

	var out report.Reporter = report.NewConsole(os.Stdout, cfg.SeparatorWidth)
	if jsonOut {
		out = report.NewJSON(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := app.New(cfg, out, log.WithField("component", "monitor"))
	if err := m.Init(ctx); err != nil {
		if stoppedByOperator(ctx, err) {
			log.Info("interrupted during initialization")
			return 0
		}
		log.Errorf("sensor initialization failed: %v", err)
		return 1
	}
	if err := m.Run(ctx); err != nil {
		log.Errorf("fatal: %v", err)
		return 1
	}
	return 0
}

// loadConfig reads configPath. A missing file at the default location
// selects the built-in defaults.
func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if errors.Is(err, fs.ErrNotExist) && configPath == defaultConfigPath {
		log.Infof("no %s, using defaults", configPath)
		return config.Default(), nil
	}
	return cfg, err
}

// stoppedByOperator reports whether err is only the result of a signal
// cancelling ctx.
func stoppedByOperator(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) && ctx.Err() != nil
}
