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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carverauto/devicewatch/pkg/logger"
	"github.com/carverauto/devicewatch/pkg/models"
	"github.com/carverauto/devicewatch/pkg/version"
)

const (
	defaultWSReconnectWait    = 5 * time.Second
	defaultWSPingInterval     = 30 * time.Second
	defaultWSHandshakeTimeout = 5 * time.Second
	defaultWSWriteTimeout     = 5 * time.Second

	actionRegister = "Register"
	actionSet      = "Set"
	actionPing     = "Ping"
)

// WebSocketConfig points at the scoreboard's WebSocket endpoint.
type WebSocketConfig struct {
	URL              string          `json:"url"`
	ReconnectWait    models.Duration `json:"reconnect_wait"`
	PingInterval     models.Duration `json:"ping_interval"`
	HandshakeTimeout models.Duration `json:"handshake_timeout"`
	WriteTimeout     models.Duration `json:"write_timeout"`
}

type registerRequest struct {
	Action string   `json:"action"`
	Paths  []string `json:"paths"`
}

type setRequest struct {
	Action string `json:"action"`
	Key    string `json:"key"`
	Value  any    `json:"value"`
}

type pingRequest struct {
	Action string `json:"action"`
}

// stateFrame is the only server frame the source consumes.
type stateFrame struct {
	State map[string]any `json:"state"`
}

// WebSocketSource speaks the scoreboard WebSocket protocol: it registers the
// patterns, receives {"state": {...}} frames and keeps the session alive with
// Ping actions. Dropped sessions are redialled and registered again.
type WebSocketSource struct {
	cfg    WebSocketConfig
	log    logger.Logger
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketSource creates a source for cfg.URL.
func NewWebSocketSource(cfg WebSocketConfig, log logger.Logger) *WebSocketSource {
	return &WebSocketSource{
		cfg: cfg,
		log: log,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout.OrDefault(defaultWSHandshakeTimeout),
		},
	}
}

func (*WebSocketSource) Name() string {
	return "websocket"
}

// Run keeps a session open until ctx is done.
func (s *WebSocketSource) Run(ctx context.Context, patterns []string, out chan<- Batch) error {
	wait := s.cfg.ReconnectWait.OrDefault(defaultWSReconnectWait)

	for {
		err := s.session(ctx, patterns, out)
		if ctx.Err() != nil {
			return nil
		}

		s.log.Warn().Err(err).Str("url", s.cfg.URL).Dur("retry_in", wait).Msg("WebSocket session ended")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func (s *WebSocketSource) session(ctx context.Context, patterns []string, out chan<- Batch) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.URL, http.Header{"User-Agent": {version.UserAgent()}})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", s.cfg.URL, err)
	}

	s.setConn(conn)
	defer s.setConn(nil)

	sessionCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup

	defer wg.Wait()
	defer cancel()

	// unblocks ReadMessage on shutdown
	wg.Add(1)

	go func() {
		defer wg.Done()
		<-sessionCtx.Done()
		_ = conn.Close()
	}()

	if err := s.write(registerRequest{Action: actionRegister, Paths: patterns}); err != nil {
		return err
	}

	s.log.Info().Str("url", s.cfg.URL).Strs("paths", patterns).Msg("WebSocket registered")

	wg.Add(1)

	go func() {
		defer wg.Done()
		s.ping(sessionCtx)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		changes, err := decodeFrame(data)
		if err != nil {
			s.log.Debug().Err(err).Msg("Ignoring WebSocket frame")
			continue
		}

		if len(changes) == 0 {
			continue
		}

		if !send(ctx, out, Batch{Changes: changes}) {
			return ctx.Err()
		}
	}
}

func (s *WebSocketSource) ping(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PingInterval.OrDefault(defaultWSPingInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.write(pingRequest{Action: actionPing}); err != nil {
				s.log.Debug().Err(err).Msg("WebSocket ping failed")
				return
			}
		}
	}
}

// decodeFrame turns a state frame into changes ordered by key.
func decodeFrame(data []byte) ([]Change, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var frame stateFrame
	if err := dec.Decode(&frame); err != nil {
		return nil, fmt.Errorf("%w: %w", errUnexpectedFrame, err)
	}

	changes := make([]Change, 0, len(frame.State))

	for _, key := range slices.Sorted(maps.Keys(frame.State)) {
		changes = append(changes, Change{Key: key, Value: frame.State[key]})
	}

	return changes, nil
}

func (s *WebSocketSource) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

// write sends one JSON message. gorilla allows a single concurrent writer.
func (s *WebSocketSource) write(msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrNotConnected
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout.OrDefault(defaultWSWriteTimeout))); err != nil {
		return err
	}

	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

// Set sends a Set action. A nil value is sent as JSON null.
func (s *WebSocketSource) Set(_ context.Context, key string, value any) error {
	return s.write(setRequest{Action: actionSet, Key: key, Value: value})
}

// Close closes the current session, if any. Run redials unless its context is done.
func (s *WebSocketSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	return s.conn.Close()
}
