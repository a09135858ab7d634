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

package deviceview

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// checkTree asserts the ordering and span rules over the whole tree.
func checkTree(t *testing.T, v *View) {
	t.Helper()

	require.Len(t, v.byID, len(v.devices))

	clients := 0

	for i, d := range v.devices {
		require.Same(t, d, v.byID[d.ID])

		if i > 0 {
			require.True(t, v.lessDevice(v.devices[i-1], d), "devices out of order at %d", i)
		}

		require.Equal(t, 1+len(d.clients), d.Span())
		require.Equal(t, len(d.clients) > 0, d.flags.Has(FlagHasClients))

		for j, c := range d.clients {
			require.Same(t, d, c.device)
			require.Same(t, c, v.clients[c.ID])

			if j > 0 {
				require.True(t, lessClient(d.clients[j-1], c), "clients of %s out of order at %d", d.ID, j)
			}
		}

		clients += len(d.clients)
	}

	require.Len(t, v.clients, clients)
}

// model is the expected membership after a sequence of events: which devices
// and clients exist and where each client hangs.
type model struct {
	devices map[string]bool
	parent  map[string]string
}

func (m *model) dropDevice(id string) {
	delete(m.devices, id)

	for c, p := range m.parent {
		if p == id {
			delete(m.parent, c)
		}
	}
}

func (m *model) attach(client, deviceID string) {
	m.devices[deviceID] = true
	m.parent[client] = deviceID
}

// checkMembership compares the view with the model. Names come from the
// cache: the latest Name of a device, or its id when none is stored.
func checkMembership(t *testing.T, h *harness, m *model) {
	t.Helper()

	want := make([]string, 0, len(m.devices))
	for id := range m.devices {
		want = append(want, id)
	}

	require.ElementsMatch(t, want, h.deviceIDs())

	for _, d := range h.view.Devices() {
		name := d.ID
		if v, ok := h.state[devKey(d.ID, "Name")]; ok {
			name = Text(v)
		}

		require.Equal(t, name, d.Name(), "name of %s", d.ID)
	}

	devices, clients := h.view.Counts()
	require.Equal(t, len(m.devices), devices)
	require.Equal(t, len(m.parent), clients)

	for c, p := range m.parent {
		cl, ok := h.view.Client(c)
		require.True(t, ok, "client %s missing", c)
		require.Equal(t, p, cl.DeviceID(), "parent of %s", c)
	}
}

func TestTreeStaysConsistentUnderRandomEvents(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	names := []string{"alpha", "Bravo", "charlie", "delta", "alpha"}

	h := newHarness(t, Options{})
	m := &model{devices: make(map[string]bool), parent: make(map[string]string)}

	for step := 0; step < 2000; step++ {
		dev := fmt.Sprintf("d%d", rng.IntN(5))
		cli := fmt.Sprintf("c%d", rng.IntN(8))

		switch rng.IntN(8) {
		case 0, 1:
			h.device(dev, "Name", names[rng.IntN(len(names))])
			m.devices[dev] = true
		case 2:
			h.device(dev, "Name", nil)
			m.dropDevice(dev)
		case 3:
			h.device(dev, "Comment", names[rng.IntN(len(names))])
			m.devices[dev] = true
		case 4, 5:
			h.set(cliKey(cli, "Device"), dev)
			m.attach(cli, dev)
		case 6:
			h.set(cliKey(cli, "Created"), int64(rng.IntN(50)))

			// a known parent brings the client back
			if _, live := m.parent[cli]; !live {
				if p, ok := h.state[cliKey(cli, "Device")]; ok {
					m.attach(cli, Text(p))
				}
			}
		case 7:
			h.set(cliKey(cli, "Device"), nil)
			delete(m.parent, cli)
		}

		checkTree(t, h.view)
		checkMembership(t, h, m)
	}
}
