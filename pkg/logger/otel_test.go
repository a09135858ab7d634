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

package logger

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
)

type recordingProvider struct {
	embedded.LoggerProvider

	mu      sync.Mutex
	records map[string][]otellog.Record
}

func (p *recordingProvider) Logger(name string, _ ...otellog.LoggerOption) otellog.Logger {
	return &recordingLogger{provider: p, scope: name}
}

type recordingLogger struct {
	embedded.Logger

	provider *recordingProvider
	scope    string
}

func (l *recordingLogger) Emit(_ context.Context, r otellog.Record) {
	l.provider.mu.Lock()
	defer l.provider.mu.Unlock()

	l.provider.records[l.scope] = append(l.provider.records[l.scope], r)
}

func (*recordingLogger) Enabled(context.Context, otellog.EnabledParameters) bool {
	return true
}

func attributes(r otellog.Record) map[string]otellog.Value {
	out := make(map[string]otellog.Value)

	r.WalkAttributes(func(kv otellog.KeyValue) bool {
		out[kv.Key] = kv.Value
		return true
	})

	return out
}

func TestOTelWriterEmitsRecords(t *testing.T) {
	provider := &recordingProvider{records: make(map[string][]otellog.Record)}
	w := newOTelWriter(context.Background(), provider)

	l := NewWriterLogger(w)
	Component(l, "statesync").Warn().
		Str("bucket", "scoreboard").
		Int("changes", 12).
		Float64("ratio", 0.5).
		Bool("snapshot", true).
		Strs("filters", []string{"Device=*"}).
		Msg("Watch restarted")

	l.Info().Msg("no component")

	_, err := w.Write([]byte("not json"))
	require.NoError(t, err)

	require.Len(t, provider.records["statesync"], 1)
	require.Len(t, provider.records[defaultScope], 1)

	r := provider.records["statesync"][0]
	assert.Equal(t, "Watch restarted", r.Body().AsString())
	assert.Equal(t, otellog.SeverityWarn, r.Severity())
	assert.Equal(t, "warn", r.SeverityText())

	attrs := attributes(r)
	assert.Equal(t, "scoreboard", attrs["bucket"].AsString())
	assert.Equal(t, int64(12), attrs["changes"].AsInt64())
	assert.InDelta(t, 0.5, attrs["ratio"].AsFloat64(), 0)
	assert.True(t, attrs["snapshot"].AsBool())
	assert.Equal(t, `["Device=*"]`, attrs["filters"].AsString())
	assert.NotContains(t, attrs, "component")
	assert.NotContains(t, attrs, "message")
}

func TestLongAttributesAreTruncated(t *testing.T) {
	kvs := attribute("payload", strings.Repeat("é", maxAttributeLength))
	require.Len(t, kvs, 2)

	got := kvs[0].Value.AsString()
	assert.LessOrEqual(t, len(got), maxAttributeLength)
	assert.True(t, strings.HasSuffix(got, truncationMarker))
	assert.Equal(t, "payload"+truncatedAttrSuffix, kvs[1].Key)
}

func TestTruncate(t *testing.T) {
	got, cut := truncate("abcdef", 5)
	assert.True(t, cut)
	assert.Equal(t, "ab...", got)

	got, cut = truncate("abc", 5)
	assert.False(t, cut)
	assert.Equal(t, "abc", got)

	// never splits a rune
	got, _ = truncate("aéé", 4)
	assert.Equal(t, "a...", got)
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, otellog.SeverityDebug, severity("debug"))
	assert.Equal(t, otellog.SeverityFatal, severity("panic"))
	assert.Equal(t, otellog.SeverityInfo, severity("chatty"))
}

func TestNewOTELWriterValidation(t *testing.T) {
	_, err := NewOTELWriter(context.Background(), OTelConfig{})
	require.ErrorIs(t, err, ErrOTelLoggingDisabled)

	_, err = NewOTELWriter(context.Background(), OTelConfig{Enabled: true})
	require.ErrorIs(t, err, ErrOTelEndpointRequired)

	require.NoError(t, ShutdownOTEL())
}
