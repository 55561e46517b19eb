package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"counter-pos/internal/app"
	"counter-pos/internal/common/config"
	"counter-pos/internal/common/logger"
)

func main() {
	modes := strings.Join(app.Modes, " | ")
	mode := flag.String("mode", "", modes)
	cfgPath := flag.String("config", "", "path to YAML config (default: ./config.yaml)")
	port := flag.Int("port", 0, "http port, overrides http.port")
	flag.Parse()

	if *mode == "" {
		fmt.Fprintln(os.Stderr, "--mode is required: "+modes)
		os.Exit(2)
	}

	lg := logger.New(*mode)
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		lg.Error("config_load_failed", err, nil)
		os.Exit(2)
	}
	lg.SetLevel(cfg.Log.Level)
	if *port != 0 {
		cfg.HTTP.Port = *port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	in, err := app.Open(ctx, cfg, lg)
	if err != nil {
		lg.Error("startup_failed", err, nil)
		os.Exit(1)
	}
	defer in.Close()

	if err := app.Run(ctx, in, *mode, cfg.HTTP.Port); err != nil {
		lg.Error("fatal", err, map[string]any{"mode": *mode})
		in.Close()
		os.Exit(1)
	}
	lg.Info("service_stopped", nil)
}

func loadConfig(path string) (config.App, error) {
	if path == "" {
		found, err := config.FindConfig()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.App{}, err
		}
		path = found
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.App{}, err
	}
	return cfg, cfg.Validate()
}
