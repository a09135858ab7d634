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

package natsutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/devicewatch/pkg/logger"
	"github.com/carverauto/devicewatch/pkg/models"
)

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	srv, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	})
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	t.Cleanup(srv.Shutdown)

	return srv
}

func TestTLSConfigModes(t *testing.T) {
	conf, err := TLSConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, conf)

	conf, err = TLSConfig(&models.SecurityConfig{Mode: models.SecurityModeNone})
	require.NoError(t, err)
	assert.Nil(t, conf)

	conf, err = TLSConfig(&models.SecurityConfig{Mode: models.SecurityModeTLS, ServerName: "nats.local"})
	require.NoError(t, err)
	require.NotNil(t, conf)
	assert.Equal(t, "nats.local", conf.ServerName)
	assert.Nil(t, conf.RootCAs)
	assert.Empty(t, conf.Certificates)

	_, err = TLSConfig(&models.SecurityConfig{Mode: "spiffe"})
	require.ErrorIs(t, err, ErrUnknownSecurityMode)

	_, err = TLSConfig(&models.SecurityConfig{Mode: models.SecurityModeMTLS})
	require.ErrorIs(t, err, ErrClientCertRequired)
}

func TestTLSConfigMissingCertificate(t *testing.T) {
	sec := &models.SecurityConfig{
		Mode:    models.SecurityModeMTLS,
		CertDir: t.TempDir(),
		TLS:     models.TLSConfig{CertFile: "client.pem", KeyFile: "client-key.pem"},
	}

	_, err := TLSConfig(sec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load client certificate")

	// relative paths are resolved on a copy
	assert.Equal(t, "client.pem", sec.TLS.CertFile)
}

func TestConnectPropagatesTLSErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "root.pem"), []byte("not a pem"), 0o600))

	_, err := Connect("nats://127.0.0.1:1", &models.SecurityConfig{
		Mode:    models.SecurityModeTLS,
		CertDir: dir,
		TLS:     models.TLSConfig{CAFile: "root.pem"},
	}, logger.NewTestLogger())
	require.ErrorIs(t, err, ErrCAParsingFailed)
	assert.Contains(t, err.Error(), "failed to build NATS TLS config")
}

func TestKeyValueCreatesMissingBucket(t *testing.T) {
	srv := runJetStreamServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	nc, err := Connect(srv.ClientURL(), nil, logger.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	js, err := JetStream(nc, "")
	require.NoError(t, err)

	_, err = KeyValue(ctx, js, "scoreboard", false)
	require.ErrorIs(t, err, jetstream.ErrBucketNotFound)

	kv, err := KeyValue(ctx, js, "scoreboard", true)
	require.NoError(t, err)
	assert.Equal(t, "scoreboard", kv.Bucket())

	again, err := KeyValue(ctx, js, "scoreboard", false)
	require.NoError(t, err)
	assert.Equal(t, "scoreboard", again.Bucket())

	_, err = KeyValue(ctx, js, "", true)
	require.ErrorIs(t, err, ErrBucketRequired)
}
