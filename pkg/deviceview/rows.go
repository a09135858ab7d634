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

// TableColumns is the header of the rendered table. Client rows put their
// Source in the Comment slot and leave the identity columns to the device row.
var TableColumns = DeviceColumns

var clientSlot = map[Column]Column{
	ColComment:    ColSource,
	ColPlatform:   ColPlatform,
	ColRemoteAddr: ColRemoteAddr,
	ColLastWrite:  ColLastWrite,
	ColCreated:    ColCreated,
}

// Row is one rendered table row.
type Row struct {
	DeviceID string
	ClientID string // empty on device rows
	Span     int    // merge span of the identity cells, device rows only
	Cells    []Cell // aligned with TableColumns
	Classes  []string
}

// IsDevice reports whether the row is a device row.
func (r Row) IsDevice() bool {
	return r.ClientID == ""
}

// Rows flattens the visible part of the tree in display order.
func (v *View) Rows() []Row {
	var out []Row

	for _, d := range v.devices {
		if !v.filters.Visible(d.flags) {
			continue
		}

		out = append(out, d.row())

		for _, c := range d.clients {
			out = append(out, c.row())
		}
	}

	return out
}

func (d *Device) row() Row {
	r := Row{
		DeviceID: d.ID,
		Span:     d.span,
		Cells:    make([]Cell, len(TableColumns)),
		Classes:  d.flags.Classes(),
	}

	for i, col := range TableColumns {
		r.Cells[i] = d.cells.get(col)
	}

	return r
}

func (c *Client) row() Row {
	r := Row{
		DeviceID: c.DeviceID(),
		ClientID: c.ID,
		Cells:    make([]Cell, len(TableColumns)),
	}

	for i, col := range TableColumns {
		if src, ok := clientSlot[col]; ok {
			r.Cells[i] = c.cells.get(src)
		}
	}

	return r
}
