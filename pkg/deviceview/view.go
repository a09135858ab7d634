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

// Package deviceview maintains the devices table: an ordered two-level tree of
// devices and their clients that is kept sorted, merged and labelled
// incrementally as keyed field updates arrive.
package deviceview

import (
	"slices"
	"sort"
	"time"

	"github.com/carverauto/devicewatch/pkg/keypath"
	"github.com/carverauto/devicewatch/pkg/logger"
)

const (
	// DefaultPrefix is the key prefix of the clients subtree.
	DefaultPrefix = "ScoreBoard.Clients"

	KindDevice = "Device"
	KindClient = "Client"
)

// Lookup resolves the latest known value of a fully-qualified key.
type Lookup interface {
	Lookup(key string) (any, bool)
}

// Options configures a View.
type Options struct {
	Prefix   string
	Collator Collator
	Filters  map[string]bool
	Logger   logger.Logger
	Now      func() time.Time
}

// Device is a top-level row group.
type Device struct {
	ID string

	sortKey string
	seq     uint64
	cells   cells
	flags   Flags
	clients []*Client
	span    int
}

// Client is a row nested under a device.
type Client struct {
	ID string

	device  *Device
	created int64
	seq     uint64
	cells   cells
}

// View is the devices table. It is not safe for concurrent use; all calls
// are expected from the single goroutine that owns it.
type View struct {
	prefix   string
	state    Lookup
	collator Collator
	log      logger.Logger
	now      func() time.Time

	devices []*Device
	byID    map[string]*Device
	clients map[string]*Client
	ages    map[*Cell]struct{}
	filters *Filters
	seq     uint64
}

// New creates an empty view resolving missing data through state.
func New(state Lookup, opts Options) *View {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}

	if opts.Collator == nil {
		opts.Collator = binaryCollator{}
	}

	if opts.Logger == nil {
		opts.Logger = logger.NewTestLogger()
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &View{
		prefix:   opts.Prefix,
		state:    state,
		collator: opts.Collator,
		log:      opts.Logger,
		now:      opts.Now,
		byID:     make(map[string]*Device),
		clients:  make(map[string]*Client),
		ages:     make(map[*Cell]struct{}),
		filters:  NewFilters(opts.Filters),
	}
}

// Prefix returns the key prefix the view reads.
func (v *View) Prefix() string {
	return v.prefix
}

// Patterns returns the registration patterns for the device and client handlers.
func (v *View) Patterns() (devices, clients []string) {
	return []string{keypath.Join(v.prefix, keypath.Segment(KindDevice, "*"))},
		[]string{keypath.Join(v.prefix, keypath.Segment(KindClient, "*"))}
}

// Filters returns the filter controller.
func (v *View) Filters() *Filters {
	return v.filters
}

// Devices returns the devices in display order.
func (v *View) Devices() []*Device {
	return slices.Clone(v.devices)
}

// Device returns the device with the given id.
func (v *View) Device(id string) (*Device, bool) {
	d, ok := v.byID[id]

	return d, ok
}

// Client returns the client with the given id.
func (v *View) Client(id string) (*Client, bool) {
	c, ok := v.clients[id]

	return c, ok
}

// Counts returns the number of devices and clients in the tree.
func (v *View) Counts() (devices, clients int) {
	return len(v.devices), len(v.clients)
}

// GetOrCreateDevice returns the device with id, creating a blank one in sorted
// position if it does not exist yet.
func (v *View) GetOrCreateDevice(id string) *Device {
	if d, ok := v.byID[id]; ok {
		return d
	}

	v.seq++

	d := &Device{
		ID:    id,
		seq:   v.seq,
		cells: newCells(DeviceColumns),
	}
	// Devices with live clients are seen now; the cell is never aged.
	d.cells[ColLastSeenActive].Text = "0s"
	d.sortKey = deviceSortKey(d, v.lookupText(keypath.Key(v.prefix, KindDevice, id, fieldName)))
	d.resync()

	v.byID[id] = d
	v.insertDevice(d)

	v.log.Debug().Str("device", id).Msg("Created device row")

	v.backfill(KindDevice, id, deviceFieldOrder, func(field string, value any) {
		v.applyDeviceField(d, field, value)
	})

	return d
}

// RemoveDevice removes the device and all of its clients. Unknown ids are ignored.
func (v *View) RemoveDevice(id string) bool {
	d, ok := v.byID[id]
	if !ok {
		return false
	}

	for _, c := range d.clients {
		v.forget(c.cells)
		delete(v.clients, c.ID)
		c.device = nil
	}

	d.clients = nil
	d.resync()
	v.forget(d.cells)

	i := v.deviceIndex(d)
	v.devices = slices.Delete(v.devices, i, i+1)
	delete(v.byID, id)

	v.log.Debug().Str("device", id).Msg("Removed device row")

	return true
}

// GetOrCreateClient returns the client with id under deviceID, creating the
// device and the client as needed. An existing client registered under another
// device is moved.
func (v *View) GetOrCreateClient(deviceID, id string) *Client {
	if c, ok := v.clients[id]; ok {
		if c.device.ID != deviceID {
			v.moveClient(c, v.GetOrCreateDevice(deviceID))
		}

		return c
	}

	d := v.GetOrCreateDevice(deviceID)

	v.seq++

	c := &Client{
		ID:      id,
		seq:     v.seq,
		cells:   newCells(ClientColumns),
		created: Millis(v.lookupValue(keypath.Key(v.prefix, KindClient, id, fieldCreated))),
	}

	v.clients[id] = c
	d.insertClient(c)

	v.log.Debug().Str("device", deviceID).Str("client", id).Msg("Created client row")

	v.backfill(KindClient, id, clientFieldOrder, func(field string, value any) {
		v.applyClientField(c, field, value)
	})

	return c
}

// RemoveClient removes one client row. Its device stays, even when it was the
// last client. Unknown ids are ignored.
func (v *View) RemoveClient(id string) bool {
	c, ok := v.clients[id]
	if !ok {
		return false
	}

	c.device.removeClient(c)
	v.forget(c.cells)
	delete(v.clients, id)

	v.log.Debug().Str("client", id).Msg("Removed client row")

	return true
}

func (v *View) moveClient(c *Client, to *Device) {
	from := c.device
	from.removeClient(c)
	to.insertClient(c)

	v.log.Debug().
		Str("client", c.ID).
		Str("from", from.ID).
		Str("to", to.ID).
		Msg("Moved client row")
}

// renameDevice relocates d when its display name changes the sort key.
func (v *View) renameDevice(d *Device, name string) {
	key := deviceSortKey(d, name)
	if key == d.sortKey {
		return
	}

	i := v.deviceIndex(d)
	v.devices = slices.Delete(v.devices, i, i+1)
	d.sortKey = key
	v.insertDevice(d)
}

func deviceSortKey(d *Device, name string) string {
	if name == "" {
		return d.ID
	}

	return name
}

func (v *View) lessDevice(a, b *Device) bool {
	if c := v.collator.Compare(a.sortKey, b.sortKey); c != 0 {
		return c < 0
	}

	return a.seq < b.seq
}

func (v *View) insertDevice(d *Device) {
	i := sort.Search(len(v.devices), func(i int) bool {
		return v.lessDevice(d, v.devices[i])
	})

	v.devices = slices.Insert(v.devices, i, d)
}

func (v *View) deviceIndex(d *Device) int {
	i := sort.Search(len(v.devices), func(i int) bool {
		return !v.lessDevice(v.devices[i], d)
	})

	if i < len(v.devices) && v.devices[i] == d {
		return i
	}

	return slices.Index(v.devices, d)
}

func (v *View) lookupValue(key string) any {
	if v.state == nil {
		return nil
	}

	value, ok := v.state.Lookup(key)
	if !ok {
		return nil
	}

	return value
}

func (v *View) lookupText(key string) string {
	return Text(v.lookupValue(key))
}

// backfill replays the known fields of a freshly created entity from the state cache.
func (v *View) backfill(kind, id string, fields []string, apply func(field string, value any)) {
	if v.state == nil {
		return
	}

	for _, field := range fields {
		if value, ok := v.state.Lookup(keypath.Key(v.prefix, kind, id, field)); ok && value != nil {
			apply(field, value)
		}
	}
}

// forget drops the cells of a removed row from the age registry.
func (v *View) forget(cs cells) {
	for _, cell := range cs {
		delete(v.ages, cell)
	}
}

// Name returns the device's display name, or its id while no name is known.
func (d *Device) Name() string {
	return d.sortKey
}

// Cell returns a copy of the device cell in col.
func (d *Device) Cell(col Column) Cell {
	return d.cells.get(col)
}

// Flags returns the device's state flags.
func (d *Device) Flags() Flags {
	return d.flags
}

// Clients returns the device's clients in display order.
func (d *Device) Clients() []*Client {
	return slices.Clone(d.clients)
}

// DeviceID returns the id of the device the client belongs to.
func (c *Client) DeviceID() string {
	if c.device == nil {
		return ""
	}

	return c.device.ID
}

// Created returns the client's sort key, its creation time in milliseconds.
func (c *Client) Created() int64 {
	return c.created
}

// Cell returns a copy of the client cell in col.
func (c *Client) Cell(col Column) Cell {
	return c.cells.get(col)
}
