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

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/carverauto/devicewatch/pkg/deviceview"
	"github.com/carverauto/devicewatch/pkg/logger"
	"github.com/carverauto/devicewatch/pkg/models"
	"github.com/carverauto/devicewatch/pkg/statesync"
)

const (
	sourceWebSocket = "websocket"
	sourceNATS      = "nats"

	defaultWebSocketURL = "ws://localhost:8000/WS/"
	defaultNATSURL      = "nats://localhost:4222"
	defaultBucket       = "scoreboard"
	defaultTick         = time.Second
)

var (
	errUnknownSource = errors.New("unknown source")
	errURLRequired   = errors.New("source url is required")
	errInvalidTick   = errors.New("tick_interval must be positive")
)

// Config is the devicewatch configuration file.
type Config struct {
	Source       string                    `json:"source"`
	Prefix       string                    `json:"prefix"`
	WebSocket    statesync.WebSocketConfig `json:"websocket"`
	NATS         statesync.NATSConfig      `json:"nats"`
	TickInterval models.Duration           `json:"tick_interval"`
	Collation    string                    `json:"collation"`
	Filters      map[string]bool           `json:"filters"`
	Logging      *logger.Config            `json:"logging"`
}

// Validate fills defaults and rejects settings the viewer cannot run with.
func (c *Config) Validate() error {
	if c.Source == "" {
		c.Source = sourceWebSocket
	}

	if c.Prefix == "" {
		c.Prefix = deviceview.DefaultPrefix
	}

	if c.TickInterval == 0 {
		c.TickInterval = models.Duration(defaultTick)
	}

	if c.TickInterval < 0 {
		return errInvalidTick
	}

	if _, err := deviceview.NewCollator(c.Collation); err != nil {
		return err
	}

	switch c.Source {
	case sourceWebSocket:
		if c.WebSocket.URL == "" {
			c.WebSocket.URL = defaultWebSocketURL
		}
	case sourceNATS:
		if c.NATS.URL == "" {
			c.NATS.URL = defaultNATSURL
		}

		if c.NATS.Bucket == "" {
			c.NATS.Bucket = defaultBucket
		}
	default:
		return fmt.Errorf("%w %q", errUnknownSource, c.Source)
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	// stdout belongs to the terminal UI
	if out := c.Logging.Output; out == "" || out == "stdout" || out == "stderr" {
		c.Logging.Output = filepath.Join(os.TempDir(), "devicewatch.log")
	}

	return nil
}

// override applies the command line flags on top of the loaded file.
func (c *Config) override(source, url string) error {
	if source != "" {
		c.Source = source
	}

	if url == "" {
		return c.Validate()
	}

	switch c.Source {
	case sourceNATS:
		c.NATS.URL = url
	default:
		c.WebSocket.URL = url
	}

	return c.Validate()
}

func (c *Config) newSource(log logger.Logger) (statesync.Source, error) {
	switch c.Source {
	case sourceWebSocket:
		if c.WebSocket.URL == "" {
			return nil, errURLRequired
		}

		return statesync.NewWebSocketSource(c.WebSocket, log), nil
	case sourceNATS:
		if c.NATS.URL == "" {
			return nil, errURLRequired
		}

		return statesync.NewNATSSource(c.NATS, log), nil
	}

	return nil, fmt.Errorf("%w %q", errUnknownSource, c.Source)
}

func (c *Config) viewOptions(log logger.Logger) (deviceview.Options, error) {
	collator, err := deviceview.NewCollator(c.Collation)
	if err != nil {
		return deviceview.Options{}, err
	}

	return deviceview.Options{
		Prefix:   c.Prefix,
		Collator: collator,
		Filters:  c.Filters,
		Logger:   log,
	}, nil
}
