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

package statesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/devicewatch/pkg/logger"
	"github.com/carverauto/devicewatch/pkg/models"
	"github.com/carverauto/devicewatch/pkg/natsutil"
)

const (
	defaultNATSReconnectWait = 2 * time.Second
	maxCoalesce              = 256
)

var errWatcherClosed = errors.New("kv watcher closed")

// NATSConfig selects the JetStream KV bucket holding the state.
type NATSConfig struct {
	URL           string                 `json:"url"`
	Bucket        string                 `json:"bucket"`
	Domain        string                 `json:"domain"`
	CreateBucket  bool                   `json:"create_bucket"`
	ReconnectWait models.Duration        `json:"reconnect_wait"`
	Security      *models.SecurityConfig `json:"security"`
}

// NATSSource reads state from a JetStream key-value bucket. Keys are stored
// in the encoding of EncodeKey and values as JSON scalars.
type NATSSource struct {
	cfg NATSConfig
	log logger.Logger

	mu sync.Mutex
	nc *nats.Conn
	kv jetstream.KeyValue

	connectFn func(ctx context.Context) (*nats.Conn, jetstream.KeyValue, error)
}

// NewNATSSource creates a source that connects lazily on Run or Set.
func NewNATSSource(cfg NATSConfig, log logger.Logger) *NATSSource {
	s := &NATSSource{cfg: cfg, log: log}
	s.connectFn = s.dial

	return s
}

// NewKVSource wraps an already opened bucket.
func NewKVSource(kv jetstream.KeyValue, log logger.Logger) *NATSSource {
	return &NATSSource{kv: kv, log: log, cfg: NATSConfig{Bucket: kv.Bucket()}}
}

func (*NATSSource) Name() string {
	return "nats"
}

func (s *NATSSource) dial(ctx context.Context) (*nats.Conn, jetstream.KeyValue, error) {
	nc, err := natsutil.Connect(s.cfg.URL, s.cfg.Security, s.log)
	if err != nil {
		return nil, nil, err
	}

	js, err := natsutil.JetStream(nc, s.cfg.Domain)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	kv, err := natsutil.KeyValue(ctx, js, s.cfg.Bucket, s.cfg.CreateBucket)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	return nc, kv, nil
}

func (s *NATSSource) keyValue(ctx context.Context) (jetstream.KeyValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kv != nil {
		return s.kv, nil
	}

	if s.connectFn == nil {
		return nil, ErrNotConnected
	}

	nc, kv, err := s.connectFn(ctx)
	if err != nil {
		return nil, err
	}

	s.nc, s.kv = nc, kv

	return kv, nil
}

// Run watches the bucket below the patterns. The initial contents arrive as
// one snapshot batch; each later update is sent as it comes, coalescing
// updates already queued. A closed watcher is re-established after the
// reconnect wait and delivers a fresh snapshot.
func (s *NATSSource) Run(ctx context.Context, patterns []string, out chan<- Batch) error {
	filters, err := WatchFilters(patterns)
	if err != nil {
		return err
	}

	wait := s.cfg.ReconnectWait.OrDefault(defaultNATSReconnectWait)

	for {
		err := s.watch(ctx, filters, out)
		if ctx.Err() != nil {
			return nil
		}

		s.log.Warn().Err(err).Dur("retry_in", wait).Msg("KV watch interrupted")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func (s *NATSSource) watch(ctx context.Context, filters []string, out chan<- Batch) error {
	kv, err := s.keyValue(ctx)
	if err != nil {
		return err
	}

	w, err := kv.WatchFiltered(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to watch %v: %w", filters, err)
	}

	defer func() {
		if err := w.Stop(); err != nil {
			s.log.Debug().Err(err).Msg("Failed to stop KV watcher")
		}
	}()

	s.log.Info().Str("bucket", kv.Bucket()).Strs("filters", filters).Msg("Watching KV bucket")

	updates := w.Updates()

	snapshot, err := collectSnapshot(ctx, updates)
	if err != nil {
		return err
	}

	if !send(ctx, out, Batch{Changes: snapshot, Snapshot: true}) {
		return ctx.Err()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-updates:
			if !ok {
				return errWatcherClosed
			}

			if entry == nil {
				continue
			}

			changes, open := drain(updates, []Change{entryChange(entry)})
			if !send(ctx, out, Batch{Changes: changes}) {
				return ctx.Err()
			}

			if !open {
				return errWatcherClosed
			}
		}
	}
}

// collectSnapshot reads entries up to the nil marker that ends the initial values.
func collectSnapshot(ctx context.Context, updates <-chan jetstream.KeyValueEntry) ([]Change, error) {
	var changes []Change

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case entry, ok := <-updates:
			if !ok {
				return nil, errWatcherClosed
			}

			if entry == nil {
				return changes, nil
			}

			if entry.Operation() == jetstream.KeyValuePut {
				changes = append(changes, entryChange(entry))
			}
		}
	}
}

// drain appends queued entries without blocking. It reports false when the
// channel was closed.
func drain(updates <-chan jetstream.KeyValueEntry, changes []Change) ([]Change, bool) {
	for len(changes) < maxCoalesce {
		select {
		case entry, ok := <-updates:
			if !ok {
				return changes, false
			}

			if entry != nil {
				changes = append(changes, entryChange(entry))
			}
		default:
			return changes, true
		}
	}

	return changes, true
}

func entryChange(e jetstream.KeyValueEntry) Change {
	ch := Change{Key: DecodeKey(e.Key())}

	if e.Operation() == jetstream.KeyValuePut {
		ch.Value = decodeValue(e.Value())
	}

	return ch
}

func send(ctx context.Context, out chan<- Batch, b Batch) bool {
	select {
	case out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

// Set puts value under the encoded key, or deletes the key when value is nil.
func (s *NATSSource) Set(ctx context.Context, key string, value any) error {
	natsKey, err := EncodeKey(key)
	if err != nil {
		return err
	}

	kv, err := s.keyValue(ctx)
	if err != nil {
		return err
	}

	if value == nil {
		if err := kv.Delete(ctx, natsKey); err != nil {
			return fmt.Errorf("failed to delete %s: %w", natsKey, err)
		}

		return nil
	}

	data, err := encodeValue(value)
	if err != nil {
		return err
	}

	if _, err := kv.Put(ctx, natsKey, data); err != nil {
		return fmt.Errorf("failed to put %s: %w", natsKey, err)
	}

	return nil
}

// Close drops the NATS connection opened by the source.
func (s *NATSSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nc != nil {
		s.nc.Close()
		s.nc = nil
		s.kv = nil
	}

	return nil
}
