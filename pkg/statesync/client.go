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

// Package statesync keeps a local cache of the state store and feeds keyed
// updates to registered handlers. Transports run on their own goroutines and
// only produce batches; the owner applies them from a single goroutine.
package statesync

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/carverauto/devicewatch/pkg/keypath"
	"github.com/carverauto/devicewatch/pkg/logger"
)

const batchBuffer = 64

type registration struct {
	pattern keypath.Pattern
	handler Handler
}

// Client is the state-sync session. Register, Apply and Lookup must be
// called from the goroutine that owns the client; Connect, Set and Close
// may be called from anywhere.
type Client struct {
	source Source
	log    logger.Logger

	state map[string]any
	regs  []registration

	batches chan Batch
	errs    chan error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient creates a client reading from source.
func NewClient(source Source, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Client{
		source:  source,
		log:     log,
		state:   make(map[string]any),
		batches: make(chan Batch, batchBuffer),
		errs:    make(chan error, 1),
	}
}

// Source returns the transport the client reads from.
func (c *Client) Source() Source {
	return c.source
}

// Register adds a handler for keys matching pattern. Handlers must be
// registered before Connect.
func (c *Client) Register(pattern string, h Handler) error {
	if h == nil {
		return errNilHandler
	}

	p, err := keypath.CompilePattern(pattern)
	if err != nil {
		return err
	}

	c.regs = append(c.regs, registration{pattern: p, handler: h})

	return nil
}

// Patterns returns the registered patterns, deduplicated, in registration order.
func (c *Client) Patterns() []string {
	seen := make(map[string]bool, len(c.regs))
	out := make([]string, 0, len(c.regs))

	for _, r := range c.regs {
		if s := r.pattern.String(); !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	return out
}

// Connect subscribes to every registered pattern and starts the transport.
// Batches arrive on Batches until Close.
func (c *Client) Connect(ctx context.Context) error {
	if len(c.regs) == 0 {
		return ErrNoHandlers
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return ErrAlreadyConnected
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	patterns := c.Patterns()

	c.log.Info().
		Str("source", c.source.Name()).
		Strs("patterns", patterns).
		Msg("Connecting state sync")

	go c.run(runCtx, patterns)

	return nil
}

func (c *Client) run(ctx context.Context, patterns []string) {
	defer close(c.done)
	defer close(c.batches)

	err := c.source.Run(ctx, patterns, c.batches)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	c.log.Error().Err(err).Str("source", c.source.Name()).Msg("State sync stopped")

	select {
	case c.errs <- err:
	default:
	}
}

// Batches returns the channel of incoming batches. It is closed once the
// transport stops.
func (c *Client) Batches() <-chan Batch {
	return c.batches
}

// Errors reports the error that stopped the transport, if any.
func (c *Client) Errors() <-chan error {
	return c.errs
}

// Apply writes every change of b into the cache and then runs the matching
// handlers for each change in order. It returns the number of handler calls.
//
// For a snapshot, deletions of cached keys the snapshot no longer carries run
// first, so an entity that lost one field but is still present is rebuilt by
// the snapshot's own changes.
func (c *Client) Apply(b Batch) int {
	changes := b.Changes

	if b.Snapshot {
		changes = append(c.vanished(b.Changes), b.Changes...)
	}

	for _, ch := range changes {
		if ch.Value == nil {
			delete(c.state, ch.Key)
		} else {
			c.state[ch.Key] = ch.Value
		}
	}

	calls := 0

	for _, ch := range changes {
		calls += c.dispatch(ch)
	}

	return calls
}

// vanished returns deletions for cached keys under a registered pattern that
// a snapshot no longer carries.
func (c *Client) vanished(snapshot []Change) []Change {
	present := make(map[string]struct{}, len(snapshot))
	for _, ch := range snapshot {
		present[ch.Key] = struct{}{}
	}

	var gone []Change

	for key := range c.state {
		if _, ok := present[key]; ok || !c.matches(key) {
			continue
		}

		gone = append(gone, Change{Key: key})
	}

	slices.SortFunc(gone, func(a, b Change) int {
		return cmp.Compare(a.Key, b.Key)
	})

	return gone
}

func (c *Client) matches(key string) bool {
	for _, r := range c.regs {
		if r.pattern.Match(key) {
			return true
		}
	}

	return false
}

func (c *Client) dispatch(ch Change) int {
	p, err := keypath.Parse(ch.Key)
	if err != nil {
		c.log.Debug().Err(err).Str("key", ch.Key).Msg("Dropping malformed key")
		return 0
	}

	calls := 0

	for _, r := range c.regs {
		if !r.pattern.Match(ch.Key) {
			continue
		}

		r.handler(p, ch.Value)
		calls++
	}

	return calls
}

// Lookup returns the latest cached value of key.
func (c *Client) Lookup(key string) (any, bool) {
	v, ok := c.state[key]

	return v, ok
}

// Set writes value under key through the transport. The cache only changes
// when the store echoes the write back.
func (c *Client) Set(ctx context.Context, key string, value any) error {
	if err := c.source.Set(ctx, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return nil
}

// Close stops the transport and waits for its goroutine to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	return c.source.Close()
}
