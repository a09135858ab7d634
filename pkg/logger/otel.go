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
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.31.0"
	"google.golang.org/grpc/credentials"

	"github.com/carverauto/devicewatch/pkg/models"
	"github.com/carverauto/devicewatch/pkg/version"
)

var (
	ErrOTelLoggingDisabled  = errors.New("OTel logging is disabled")
	ErrOTelEndpointRequired = errors.New("OTel endpoint is required when enabled")
	ErrFailedToParseCACert  = errors.New("failed to parse CA certificate")
)

const (
	defaultScope        = "devicewatch"
	defaultExportWait   = 5 * time.Second
	shutdownTimeout     = 10 * time.Second
	maxAttributeLength  = 4096
	truncationMarker    = "..."
	truncatedAttrSuffix = ".truncated"
)

// OTelConfig enables export of every log entry over OTLP/gRPC.
type OTelConfig struct {
	Enabled      bool              `json:"enabled" yaml:"enabled"`
	Endpoint     string            `json:"endpoint" yaml:"endpoint"`
	Headers      map[string]string `json:"headers" yaml:"headers"`
	ServiceName  string            `json:"service_name" yaml:"service_name"`
	BatchTimeout models.Duration   `json:"batch_timeout" yaml:"batch_timeout"`
	Insecure     bool              `json:"insecure" yaml:"insecure"`
	TLS          *models.TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// OTelWriter turns zerolog JSON lines into OTel log records. The component
// field of an entry selects the instrumentation scope.
type OTelWriter struct {
	ctx      context.Context
	provider otellog.LoggerProvider
	scopes   sync.Map // component -> otellog.Logger
}

//nolint:gochecknoglobals // flushed by Shutdown
var (
	otelMu       sync.Mutex
	otelProvider *sdklog.LoggerProvider
)

// NewOTELWriter starts an OTLP exporter and installs it as the global log
// provider.
func NewOTELWriter(ctx context.Context, config OTelConfig) (*OTelWriter, error) {
	if !config.Enabled {
		return nil, ErrOTelLoggingDisabled
	}

	if config.Endpoint == "" {
		return nil, ErrOTelEndpointRequired
	}

	opts, err := exporterOptions(config)
	if err != nil {
		return nil, err
	}

	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	service := config.ServiceName
	if service == "" {
		service = defaultScope
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(service),
		semconv.ServiceVersion(version.Version()),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter,
			sdklog.WithExportTimeout(config.BatchTimeout.OrDefault(defaultExportWait)))),
	)

	otelMu.Lock()
	otelProvider = provider
	otelMu.Unlock()

	global.SetLoggerProvider(provider)

	return newOTelWriter(ctx, provider), nil
}

func newOTelWriter(ctx context.Context, provider otellog.LoggerProvider) *OTelWriter {
	return &OTelWriter{ctx: ctx, provider: provider}
}

func exporterOptions(config OTelConfig) ([]otlploggrpc.Option, error) {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(config.Endpoint)}

	switch {
	case config.Insecure:
		opts = append(opts, otlploggrpc.WithInsecure())
	case config.TLS != nil:
		tlsConfig, err := clientTLS(config.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to setup TLS configuration: %w", err)
		}

		opts = append(opts, otlploggrpc.WithTLSCredentials(credentials.NewTLS(tlsConfig)))
	}

	if len(config.Headers) > 0 {
		opts = append(opts, otlploggrpc.WithHeaders(config.Headers))
	}

	return opts, nil
}

func clientTLS(cfg *models.TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}

		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, ErrFailedToParseCACert
		}

		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// Write emits one zerolog entry. Lines that are not JSON objects are dropped
// so a broken exporter never fails the local log.
func (w *OTelWriter) Write(p []byte) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(p))
	dec.UseNumber()

	var entry map[string]any
	if err := dec.Decode(&entry); err != nil {
		return len(p), nil
	}

	var record otellog.Record

	if ts, ok := popString(entry, zerolog.TimestampFieldName); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			record.SetTimestamp(t)
		}
	}

	if lvl, ok := popString(entry, zerolog.LevelFieldName); ok {
		record.SetSeverity(severity(lvl))
		record.SetSeverityText(lvl)
	}

	if msg, ok := popString(entry, zerolog.MessageFieldName); ok {
		record.SetBody(otellog.StringValue(msg))
	}

	scope, ok := popString(entry, "component")
	if !ok || scope == "" {
		scope = defaultScope
	}

	for k, v := range entry {
		record.AddAttributes(attribute(k, v)...)
	}

	w.scope(scope).Emit(w.ctx, record)

	return len(p), nil
}

func (w *OTelWriter) scope(name string) otellog.Logger {
	if l, ok := w.scopes.Load(name); ok {
		return l.(otellog.Logger)
	}

	l, _ := w.scopes.LoadOrStore(name, w.provider.Logger(name))

	return l.(otellog.Logger)
}

func popString(entry map[string]any, key string) (string, bool) {
	s, ok := entry[key].(string)
	if ok {
		delete(entry, key)
	}

	return s, ok
}

// attribute converts a decoded JSON value. Objects and arrays are kept as
// their JSON text; long strings are cut and flagged with a companion
// attribute.
func attribute(key string, value any) []otellog.KeyValue {
	switch v := value.(type) {
	case nil:
		return []otellog.KeyValue{otellog.Empty(key)}
	case bool:
		return []otellog.KeyValue{otellog.Bool(key, v)}
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return []otellog.KeyValue{otellog.Int64(key, i)}
		}

		if f, err := v.Float64(); err == nil {
			return []otellog.KeyValue{otellog.Float64(key, f)}
		}

		return []otellog.KeyValue{otellog.String(key, v.String())}
	case string:
		return stringAttribute(key, v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return []otellog.KeyValue{otellog.String(key, fmt.Sprint(v))}
		}

		return stringAttribute(key, string(raw))
	}
}

func stringAttribute(key, value string) []otellog.KeyValue {
	cut, truncated := truncate(value, maxAttributeLength)
	if !truncated {
		return []otellog.KeyValue{otellog.String(key, value)}
	}

	return []otellog.KeyValue{
		otellog.String(key, cut),
		otellog.Bool(key+truncatedAttrSuffix, true),
	}
}

// truncate shortens s to at most limit bytes on a rune boundary, ending in
// the truncation marker.
func truncate(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}

	end := max(limit-len(truncationMarker), 0)
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}

	return s[:end] + truncationMarker, true
}

func severity(level string) otellog.Severity {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return otellog.SeverityInfo
	}

	switch lvl {
	case zerolog.TraceLevel:
		return otellog.SeverityTrace
	case zerolog.DebugLevel:
		return otellog.SeverityDebug
	case zerolog.WarnLevel:
		return otellog.SeverityWarn
	case zerolog.ErrorLevel:
		return otellog.SeverityError
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return otellog.SeverityFatal
	default:
		return otellog.SeverityInfo
	}
}

// ShutdownOTEL flushes and stops the exporter started by NewOTELWriter.
func ShutdownOTEL() error {
	otelMu.Lock()
	provider := otelProvider
	otelProvider = nil
	otelMu.Unlock()

	if provider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return provider.Shutdown(ctx)
}
