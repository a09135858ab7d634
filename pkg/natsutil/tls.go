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

// Package natsutil connects to NATS with the configured security and
// opens the JetStream key-value buckets devicewatch reads and writes.
package natsutil

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/carverauto/devicewatch/pkg/config"
	"github.com/carverauto/devicewatch/pkg/models"
)

var (
	ErrUnknownSecurityMode = errors.New("unknown security mode")
	ErrClientCertRequired  = errors.New("mtls requires cert_file and key_file")
	ErrCAParsingFailed     = errors.New("failed to parse CA certificate")
)

// TLSConfig builds the client TLS settings for sec. It returns nil when sec
// asks for a plain connection. Without a CA file the system roots verify the
// server.
func TLSConfig(sec *models.SecurityConfig) (*tls.Config, error) {
	if sec == nil {
		return nil, nil
	}

	switch sec.Mode {
	case "", models.SecurityModeNone:
		return nil, nil
	case models.SecurityModeTLS, models.SecurityModeMTLS:
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownSecurityMode, sec.Mode)
	}

	paths := sec.TLS
	config.NormalizeTLSPaths(&paths, sec.CertDir)

	tlsConfig := &tls.Config{
		ServerName: sec.ServerName,
		MinVersion: tls.VersionTLS13,
	}

	if paths.CAFile != "" {
		pool, err := loadPool(paths.CAFile)
		if err != nil {
			return nil, err
		}

		tlsConfig.RootCAs = pool
	}

	if sec.Mode == models.SecurityModeMTLS {
		if paths.CertFile == "" || paths.KeyFile == "" {
			return nil, ErrClientCertRequired
		}

		cert, err := tls.LoadX509KeyPair(paths.CertFile, paths.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}

		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func loadPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%w: %s", ErrCAParsingFailed, path)
	}

	return pool, nil
}
