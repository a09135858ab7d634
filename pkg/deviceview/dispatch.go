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
	"time"

	"github.com/carverauto/devicewatch/pkg/age"
	"github.com/carverauto/devicewatch/pkg/keypath"
)

const (
	fieldName    = "Name"
	fieldCreated = "Created"
	fieldDevice  = "Device"

	// ClientMarker is the device-level field listing the device's clients.
	// It carries no display data.
	ClientMarker = "Client"
)

type cellKind int

const (
	textCell cellKind = iota
	ageCell
)

// fieldAction describes how one field updates a row: which cell it writes,
// how, which flag it toggles and whether it is the row's sort key.
type fieldAction struct {
	column  Column
	kind    cellKind
	flag    Flags
	flagOn  func(any) bool
	sortKey bool
}

var deviceFields = map[string]fieldAction{
	"Name":       {column: ColName, kind: textCell, sortKey: true},
	"RemoteAddr": {column: ColRemoteAddr, kind: textCell},
	"Platform":   {column: ColPlatform, kind: textCell},
	"Accessed":   {column: ColLastSeenInactive, kind: ageCell},
	"Wrote":      {column: ColLastWrite, kind: ageCell, flag: FlagHasWritten, flagOn: nonZero},
	"Created":    {column: ColCreated, kind: ageCell},
	"Comment":    {column: ColComment, kind: textCell, flag: FlagHasComment, flagOn: nonEmpty},
}

var clientFields = map[string]fieldAction{
	"Source":     {column: ColSource, kind: textCell},
	"RemoteAddr": {column: ColRemoteAddr, kind: textCell},
	"Platform":   {column: ColPlatform, kind: textCell},
	"Wrote":      {column: ColLastWrite, kind: ageCell},
	"Created":    {column: ColCreated, kind: ageCell, sortKey: true},
}

// Backfill order; maps have none.
var (
	deviceFieldOrder = []string{"Name", "Comment", "Platform", "RemoteAddr", "Accessed", "Wrote", "Created"}
	clientFieldOrder = []string{"Source", "Platform", "RemoteAddr", "Wrote", "Created"}
)

// HandleDevice applies one Device(id).Field update. A nil value deletes the device.
func (v *View) HandleDevice(p keypath.Path, value any) {
	if p.Field == ClientMarker || p.SubID != "" {
		return
	}

	if value == nil {
		v.RemoveDevice(p.ID)
		return
	}

	v.applyDeviceField(v.GetOrCreateDevice(p.ID), p.Field, value)
}

// HandleClient applies one Client(id).Field update. A nil value deletes the
// client. Fields of a client whose device is not known yet are dropped; the
// row is built from the state cache once Client(id).Device arrives.
func (v *View) HandleClient(p keypath.Path, value any) {
	if p.SubID != "" {
		return
	}

	if value == nil {
		v.RemoveClient(p.ID)
		return
	}

	if p.Field == fieldDevice {
		if deviceID := Text(value); deviceID != "" {
			v.GetOrCreateClient(deviceID, p.ID)
		}

		return
	}

	c, ok := v.clients[p.ID]
	if !ok {
		deviceID := v.lookupText(p.FieldKey(fieldDevice))
		if deviceID == "" {
			v.log.Debug().Str("key", p.Key).Msg("Dropping client field, device unknown")
			return
		}

		c = v.GetOrCreateClient(deviceID, p.ID)
	}

	v.applyClientField(c, p.Field, value)
}

func (v *View) applyDeviceField(d *Device, field string, value any) {
	act, ok := deviceFields[field]
	if !ok {
		return
	}

	v.writeCell(d.cells[act.column], act.kind, value)

	if act.flag != 0 {
		d.flags.set(act.flag, act.flagOn(value))
	}

	if act.sortKey {
		v.renameDevice(d, Text(value))
	}
}

func (v *View) applyClientField(c *Client, field string, value any) {
	act, ok := clientFields[field]
	if !ok {
		return
	}

	v.writeCell(c.cells[act.column], act.kind, value)

	if act.sortKey {
		c.setCreated(Millis(value))
	}
}

func (v *View) writeCell(cell *Cell, kind cellKind, value any) {
	switch kind {
	case textCell:
		cell.Text = Text(value)
	case ageCell:
		cell.Age = Millis(value)
		cell.Title = age.Title(cell.Age)

		// Never keeps the last label and stops refreshing it
		if cell.Age == age.Never {
			delete(v.ages, cell)
			return
		}

		v.ages[cell] = struct{}{}

		if text, ok := age.Format(cell.Age, v.now()); ok {
			cell.Text = text
		}
	}
}

// RefreshAges relabels every live age cell against one shared now.
func (v *View) RefreshAges(now time.Time) int {
	for cell := range v.ages {
		if text, ok := age.Format(cell.Age, now); ok {
			cell.Text = text
		}
	}

	return len(v.ages)
}
