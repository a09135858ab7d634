/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package main implements the devicewatch terminal viewer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/carverauto/devicewatch/pkg/config"
	"github.com/carverauto/devicewatch/pkg/deviceview"
	"github.com/carverauto/devicewatch/pkg/logger"
	"github.com/carverauto/devicewatch/pkg/statesync"
	"github.com/carverauto/devicewatch/pkg/tui"
	"github.com/carverauto/devicewatch/pkg/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "devicewatch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the JSON config file")
	source := flag.String("source", "", "state source: websocket or nats")
	url := flag.String("url", "", "source url, overrides the config file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg Config

	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.override(*source, *url); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := logger.Init(ctx, cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		_ = logger.Shutdown()
	}()

	log, err := logger.NewComponent(ctx, "devicewatch", cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	src, err := cfg.newSource(logger.Component(log, "statesync"))
	if err != nil {
		return err
	}

	opts, err := cfg.viewOptions(logger.Component(log, "deviceview"))
	if err != nil {
		return err
	}

	client := statesync.NewClient(src, log)
	view := deviceview.New(client, opts)

	if err := tui.Register(client, view); err != nil {
		return err
	}

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	defer func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close source")
		}
	}()

	log.Info().
		Str("source", cfg.Source).
		Str("prefix", cfg.Prefix).
		Str("version", version.Version()).
		Msg("Starting devicewatch")

	model := tui.New(ctx, client, view, tui.Options{
		Tick:   cfg.TickInterval.Std(),
		Logger: log,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil &&
		ctx.Err() == nil {
		return fmt.Errorf("terminal ui: %w", err)
	}

	return nil
}
