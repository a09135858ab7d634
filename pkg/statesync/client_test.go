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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/devicewatch/pkg/deviceview"
	"github.com/carverauto/devicewatch/pkg/keypath"
	"github.com/carverauto/devicewatch/pkg/logger"
)

const (
	devicePattern = "ScoreBoard.Clients.Device(*)"
	clientPattern = "ScoreBoard.Clients.Client(*)"
)

type call struct {
	key   string
	field string
	value any
}

func recorder(calls *[]call) Handler {
	return func(p keypath.Path, value any) {
		*calls = append(*calls, call{key: p.Key, field: p.Field, value: value})
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	c := NewClient(nil, logger.NewTestLogger())

	require.ErrorIs(t, c.Register("ScoreBoard.Device(d*)", func(keypath.Path, any) {}), keypath.ErrMalformedPattern)
	require.ErrorIs(t, c.Register(devicePattern, nil), errNilHandler)
	assert.Empty(t, c.Patterns())
}

func TestPatternsAreDeduplicated(t *testing.T) {
	c := NewClient(nil, logger.NewTestLogger())

	noop := func(keypath.Path, any) {}
	require.NoError(t, c.Register(devicePattern, noop))
	require.NoError(t, c.Register(clientPattern, noop))
	require.NoError(t, c.Register(devicePattern, noop))

	assert.Equal(t, []string{devicePattern, clientPattern}, c.Patterns())
}

func TestApplyWritesCacheBeforeDispatch(t *testing.T) {
	c := NewClient(nil, logger.NewTestLogger())

	var seen []any

	require.NoError(t, c.Register(clientPattern, func(p keypath.Path, _ any) {
		if p.Field == "Source" {
			// the Device field comes later in the same batch
			v, _ := c.Lookup("ScoreBoard.Clients.Client(c1).Device")
			seen = append(seen, v)
		}
	}))

	c.Apply(Batch{Changes: []Change{
		{Key: "ScoreBoard.Clients.Client(c1).Source", Value: "wb"},
		{Key: "ScoreBoard.Clients.Client(c1).Device", Value: "d1"},
	}})

	assert.Equal(t, []any{"d1"}, seen)
}

func TestApplyRoutesByPattern(t *testing.T) {
	c := NewClient(nil, logger.NewTestLogger())

	var devices, clients []call

	require.NoError(t, c.Register(devicePattern, recorder(&devices)))
	require.NoError(t, c.Register(clientPattern, recorder(&clients)))

	n := c.Apply(Batch{Changes: []Change{
		{Key: "ScoreBoard.Clients.Device(d1).Name", Value: "alpha"},
		{Key: "ScoreBoard.Clients.Client(c1).Source", Value: "wb"},
		{Key: "ScoreBoard.Game.State", Value: "Running"},
		{Key: "ScoreBoard.Clients.Device(d2", Value: "broken"},
	}})

	assert.Equal(t, 2, n)
	assert.Equal(t, []call{{key: "ScoreBoard.Clients.Device(d1).Name", field: "Name", value: "alpha"}}, devices)
	assert.Equal(t, []call{{key: "ScoreBoard.Clients.Client(c1).Source", field: "Source", value: "wb"}}, clients)

	v, ok := c.Lookup("ScoreBoard.Game.State")
	assert.True(t, ok)
	assert.Equal(t, "Running", v)
}

func TestApplyDeletion(t *testing.T) {
	c := NewClient(nil, logger.NewTestLogger())

	var devices []call

	require.NoError(t, c.Register(devicePattern, recorder(&devices)))

	key := "ScoreBoard.Clients.Device(d1).Name"
	c.Apply(Batch{Changes: []Change{{Key: key, Value: "alpha"}}})
	c.Apply(Batch{Changes: []Change{{Key: key}}})

	_, ok := c.Lookup(key)
	assert.False(t, ok)
	require.Len(t, devices, 2)
	assert.Nil(t, devices[1].value)
}

func TestApplySnapshotDeletesVanishedKeys(t *testing.T) {
	c := NewClient(nil, logger.NewTestLogger())

	var devices []call

	require.NoError(t, c.Register(devicePattern, recorder(&devices)))

	c.Apply(Batch{Changes: []Change{
		{Key: "ScoreBoard.Clients.Device(d1).Name", Value: "alpha"},
		{Key: "ScoreBoard.Clients.Device(d2).Name", Value: "bravo"},
		{Key: "ScoreBoard.Game.State", Value: "Running"},
	}})

	devices = nil

	c.Apply(Batch{Snapshot: true, Changes: []Change{
		{Key: "ScoreBoard.Clients.Device(d1).Name", Value: "alpha"},
	}})

	assert.Equal(t, []call{
		{key: "ScoreBoard.Clients.Device(d2).Name", field: "Name", value: nil},
		{key: "ScoreBoard.Clients.Device(d1).Name", field: "Name", value: "alpha"},
	}, devices)

	_, ok := c.Lookup("ScoreBoard.Clients.Device(d2).Name")
	assert.False(t, ok)

	// outside every pattern, so untouched
	_, ok = c.Lookup("ScoreBoard.Game.State")
	assert.True(t, ok)
}

func TestSnapshotReplayKeepsEntitiesStillPresent(t *testing.T) {
	c := NewClient(nil, logger.NewTestLogger())
	view := deviceview.New(c, deviceview.Options{Logger: logger.NewTestLogger()})

	devices, clients := view.Patterns()
	for _, p := range devices {
		require.NoError(t, c.Register(p, view.HandleDevice))
	}

	for _, p := range clients {
		require.NoError(t, c.Register(p, view.HandleClient))
	}

	c.Apply(Batch{Snapshot: true, Changes: []Change{
		{Key: "ScoreBoard.Clients.Device(d1).Name", Value: "alpha"},
		{Key: "ScoreBoard.Clients.Device(d1).Platform", Value: "Linux"},
		{Key: "ScoreBoard.Clients.Client(c1).Device", Value: "d1"},
		{Key: "ScoreBoard.Clients.Client(c1).Source", Value: "wb"},
	}})

	_, ok := view.Client("c1")
	require.True(t, ok)

	// re-watch: Platform and Source went away while disconnected
	c.Apply(Batch{Snapshot: true, Changes: []Change{
		{Key: "ScoreBoard.Clients.Client(c1).Device", Value: "d1"},
		{Key: "ScoreBoard.Clients.Device(d1).Name", Value: "alpha"},
	}})

	d, ok := view.Device("d1")
	require.True(t, ok, "device still in the snapshot was dropped")
	assert.Equal(t, "alpha", d.Name())
	assert.Empty(t, d.Cell(deviceview.ColPlatform).Text)
	assert.Equal(t, 2, d.Span())

	cl, ok := view.Client("c1")
	require.True(t, ok, "client still in the snapshot was dropped")
	assert.Equal(t, "d1", cl.DeviceID())
	assert.Empty(t, cl.Cell(deviceview.ColSource).Text)

	_, ok = c.Lookup("ScoreBoard.Clients.Device(d1).Platform")
	assert.False(t, ok)
}

func TestConnectRequiresHandlers(t *testing.T) {
	ctrl := gomock.NewController(t)

	c := NewClient(NewMockSource(ctrl), logger.NewTestLogger())
	require.ErrorIs(t, c.Connect(context.Background()), ErrNoHandlers)
}

func TestConnectDeliversBatchesUntilClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)

	src.EXPECT().Name().Return("mock").AnyTimes()
	src.EXPECT().
		Run(gomock.Any(), []string{devicePattern}, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ []string, out chan<- Batch) error {
			out <- Batch{Changes: []Change{{Key: "ScoreBoard.Clients.Device(d1).Name", Value: "alpha"}}}
			<-ctx.Done()

			return ctx.Err()
		})
	src.EXPECT().Close().Return(nil)

	c := NewClient(src, logger.NewTestLogger())

	var devices []call

	require.NoError(t, c.Register(devicePattern, recorder(&devices)))
	require.NoError(t, c.Connect(context.Background()))
	require.ErrorIs(t, c.Connect(context.Background()), ErrAlreadyConnected)

	select {
	case b := <-c.Batches():
		c.Apply(b)
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}

	assert.Len(t, devices, 1)

	require.NoError(t, c.Close())

	_, open := <-c.Batches()
	assert.False(t, open)

	select {
	case err := <-c.Errors():
		t.Fatalf("unexpected error: %v", err)
	default:
	}
}

func TestConnectReportsTransportFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)

	boom := errors.New("bucket gone")

	src.EXPECT().Name().Return("mock").AnyTimes()
	src.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(boom)
	src.EXPECT().Close().Return(nil)

	c := NewClient(src, logger.NewTestLogger())
	require.NoError(t, c.Register(clientPattern, func(keypath.Path, any) {}))
	require.NoError(t, c.Connect(context.Background()))

	select {
	case err := <-c.Errors():
		require.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("no error reported")
	}

	require.NoError(t, c.Close())
}

func TestSetGoesThroughSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)

	key := "ScoreBoard.Clients.Device(d1).Comment"
	boom := errors.New("offline")

	src.EXPECT().Set(gomock.Any(), key, "spare laptop").Return(nil)
	src.EXPECT().Set(gomock.Any(), key, "again").Return(boom)

	c := NewClient(src, logger.NewTestLogger())

	require.NoError(t, c.Set(context.Background(), key, "spare laptop"))

	// the cache waits for the echo
	_, ok := c.Lookup(key)
	assert.False(t, ok)

	err := c.Set(context.Background(), key, "again")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), key)
}
