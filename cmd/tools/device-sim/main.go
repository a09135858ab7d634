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

// Package main publishes synthetic devices and clients into the scoreboard KV
// bucket so the viewer can be exercised without a scoreboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/devicewatch/pkg/deviceview"
	"github.com/carverauto/devicewatch/pkg/keypath"
	"github.com/carverauto/devicewatch/pkg/logger"
	"github.com/carverauto/devicewatch/pkg/natsutil"
	"github.com/carverauto/devicewatch/pkg/statesync"
)

var errNoDevices = errors.New("devices must be positive")

var platforms = []string{"Linux", "Windows", "macOS", "Android", "iOS"}

type simConfig struct {
	natsURL   string
	domain    string
	bucket    string
	prefix    string
	devices   int
	clients   int
	interval  time.Duration
	dropRatio float64
	seed      uint64
}

type publisher interface {
	Set(ctx context.Context, key string, value any) error
}

// simulator owns the synthetic population.
type simulator struct {
	cfg     simConfig
	pub     publisher
	rng     *rand.Rand
	now     func() time.Time
	log     logger.Logger
	devs    []string
	clients map[string][]string // by device id
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "device-sim failed: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() simConfig {
	var cfg simConfig

	flag.StringVar(&cfg.natsURL, "nats-url", getenvDefault("NATS_URL", "nats://localhost:4222"), "NATS server URL")
	flag.StringVar(&cfg.domain, "js-domain", os.Getenv("NATS_JS_DOMAIN"), "JetStream domain (optional)")
	flag.StringVar(&cfg.bucket, "bucket", getenvDefault("KV_BUCKET", "scoreboard"), "KV bucket to publish into")
	flag.StringVar(&cfg.prefix, "prefix", deviceview.DefaultPrefix, "key prefix of the clients subtree")
	flag.IntVar(&cfg.devices, "devices", 20, "number of devices")
	flag.IntVar(&cfg.clients, "clients", 3, "maximum clients per device")
	flag.DurationVar(&cfg.interval, "interval", time.Second, "time between update rounds")
	flag.Float64Var(&cfg.dropRatio, "drop", 0.1, "chance per round that a client disconnects")
	flag.Uint64Var(&cfg.seed, "seed", uint64(time.Now().UnixNano()), "random seed")
	flag.Parse()

	return cfg
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func run(cfg simConfig) error {
	if cfg.devices <= 0 {
		return errNoDevices
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := logger.NewComponent(ctx, "device-sim", logger.DefaultConfig())
	if err != nil {
		return err
	}

	nc, err := natsutil.Connect(cfg.natsURL, nil, log)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := natsutil.JetStream(nc, cfg.domain)
	if err != nil {
		return err
	}

	kv, err := natsutil.KeyValue(ctx, js, cfg.bucket, true)
	if err != nil {
		return err
	}

	sim := newSimulator(cfg, statesync.NewKVSource(kv, log), log)

	if err := sim.populate(ctx); err != nil {
		return err
	}

	log.Info().Int("devices", cfg.devices).Str("bucket", cfg.bucket).Msg("Population published")

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := sim.round(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("Update round failed")
			}
		}
	}
}

func newSimulator(cfg simConfig, pub publisher, log logger.Logger) *simulator {
	return &simulator{
		cfg:     cfg,
		pub:     pub,
		rng:     rand.New(rand.NewPCG(cfg.seed, cfg.seed>>1)),
		now:     time.Now,
		log:     log,
		clients: make(map[string][]string),
	}
}

func (s *simulator) key(kind, id, field string) string {
	return keypath.Key(s.cfg.prefix, kind, id, field)
}

func (s *simulator) set(ctx context.Context, kind, id, field string, value any) error {
	return s.pub.Set(ctx, s.key(kind, id, field), value)
}

func (s *simulator) nowMillis() int64 {
	return s.now().UnixMilli()
}

// populate publishes every device and an initial set of clients.
func (s *simulator) populate(ctx context.Context) error {
	for i := range s.cfg.devices {
		id := uuid.NewString()
		s.devs = append(s.devs, id)

		fields := []struct {
			name  string
			value any
		}{
			{"Name", fmt.Sprintf("device-%02d", i)},
			{"Platform", platforms[s.rng.IntN(len(platforms))]},
			{"RemoteAddr", s.addr()},
			{"Created", s.nowMillis()},
			{"Accessed", s.nowMillis()},
		}

		for _, f := range fields {
			if err := s.set(ctx, deviceview.KindDevice, id, f.name, f.value); err != nil {
				return err
			}
		}

		for range s.rng.IntN(s.cfg.clients + 1) {
			if err := s.connect(ctx, id); err != nil {
				return err
			}
		}
	}

	return nil
}

// round touches a random device, connects or drops a client, and records a
// write on a random client.
func (s *simulator) round(ctx context.Context) error {
	dev := s.devs[s.rng.IntN(len(s.devs))]

	if err := s.set(ctx, deviceview.KindDevice, dev, "Accessed", s.nowMillis()); err != nil {
		return err
	}

	if len(s.clients[dev]) < s.cfg.clients && s.rng.Float64() < 0.5 {
		if err := s.connect(ctx, dev); err != nil {
			return err
		}
	}

	if s.rng.Float64() < s.cfg.dropRatio {
		if err := s.dropClient(ctx); err != nil {
			return err
		}
	}

	return s.write(ctx)
}

func (s *simulator) connect(ctx context.Context, dev string) error {
	id := uuid.NewString()

	fields := []struct {
		name  string
		value any
	}{
		{"Device", dev},
		{"Source", fmt.Sprintf("client-%d", s.rng.IntN(1000))},
		{"Platform", platforms[s.rng.IntN(len(platforms))]},
		{"RemoteAddr", s.addr()},
		{"Created", s.nowMillis()},
	}

	for _, f := range fields {
		if err := s.set(ctx, deviceview.KindClient, id, f.name, f.value); err != nil {
			return err
		}
	}

	s.clients[dev] = append(s.clients[dev], id)
	s.log.Debug().Str("device", dev).Str("client", id).Msg("Client connected")

	return nil
}

func (s *simulator) dropClient(ctx context.Context) error {
	dev, ok := s.pickClientDevice()
	if !ok {
		return nil
	}

	ids := s.clients[dev]
	i := s.rng.IntN(len(ids))
	id := ids[i]

	for _, field := range []string{"Device", "Source", "Platform", "RemoteAddr", "Wrote", "Created"} {
		if err := s.set(ctx, deviceview.KindClient, id, field, nil); err != nil {
			return err
		}
	}

	s.clients[dev] = append(ids[:i], ids[i+1:]...)
	s.log.Debug().Str("device", dev).Str("client", id).Msg("Client dropped")

	return nil
}

func (s *simulator) write(ctx context.Context) error {
	dev, ok := s.pickClientDevice()
	if !ok {
		return nil
	}

	ids := s.clients[dev]
	id := ids[s.rng.IntN(len(ids))]
	now := s.nowMillis()

	if err := s.set(ctx, deviceview.KindClient, id, "Wrote", now); err != nil {
		return err
	}

	return s.set(ctx, deviceview.KindDevice, dev, "Wrote", now)
}

func (s *simulator) pickClientDevice() (string, bool) {
	var candidates []string

	for _, dev := range s.devs {
		if len(s.clients[dev]) > 0 {
			candidates = append(candidates, dev)
		}
	}

	if len(candidates) == 0 {
		return "", false
	}

	return candidates[s.rng.IntN(len(candidates))], true
}

func (s *simulator) addr() string {
	return fmt.Sprintf("10.%d.%d.%d", s.rng.IntN(256), s.rng.IntN(256), 1+s.rng.IntN(254))
}
