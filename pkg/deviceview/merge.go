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
	"slices"
	"sort"
)

// Span is the number of table rows the device's identity cells cover.
func (d *Device) Span() int {
	return d.span
}

// resync recomputes the merge span and the HasClients flag. It runs inside
// every structural change of d.clients.
func (d *Device) resync() {
	d.span = 1 + len(d.clients)
	d.flags.set(FlagHasClients, len(d.clients) > 0)
}

func lessClient(a, b *Client) bool {
	if a.created != b.created {
		return a.created < b.created
	}

	return a.seq < b.seq
}

func (d *Device) insertClient(c *Client) {
	i := sort.Search(len(d.clients), func(i int) bool {
		return lessClient(c, d.clients[i])
	})

	d.clients = slices.Insert(d.clients, i, c)
	c.device = d
	d.resync()
}

func (d *Device) removeClient(c *Client) {
	i := sort.Search(len(d.clients), func(i int) bool {
		return !lessClient(d.clients[i], c)
	})

	if i >= len(d.clients) || d.clients[i] != c {
		i = slices.Index(d.clients, c)
	}

	if i >= 0 {
		d.clients = slices.Delete(d.clients, i, i+1)
	}

	d.resync()
}

// setCreated re-sorts c within its device when its creation time changes.
func (c *Client) setCreated(ts int64) {
	if ts == c.created {
		return
	}

	d := c.device
	d.removeClient(c)
	c.created = ts
	d.insertClient(c)
}
