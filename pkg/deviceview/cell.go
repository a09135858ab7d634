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

// Column names a displayed cell.
type Column string

const (
	ColName             Column = "Name"
	ColComment          Column = "Comment"
	ColPlatform         Column = "Platform"
	ColRemoteAddr       Column = "RemoteAddr"
	ColLastSeenActive   Column = "LastSeenActive"
	ColLastSeenInactive Column = "LastSeenInactive"
	ColLastWrite        Column = "LastWrite"
	ColCreated          Column = "Created"
	ColSource           Column = "Source"
)

var (
	// DeviceColumns is the scaffold of a device row, in display order.
	DeviceColumns = []Column{
		ColName, ColComment, ColPlatform, ColRemoteAddr,
		ColLastSeenActive, ColLastSeenInactive, ColLastWrite, ColCreated,
	}

	// ClientColumns is the scaffold of a client row, in display order.
	ClientColumns = []Column{ColSource, ColPlatform, ColRemoteAddr, ColLastWrite, ColCreated}

	// IdentityColumns are the device cells that span the device's client rows.
	IdentityColumns = []Column{ColName, ColLastSeenActive, ColLastSeenInactive}
)

// Spans reports whether the column is one of the merged identity cells.
func (c Column) Spans() bool {
	for _, id := range IdentityColumns {
		if c == id {
			return true
		}
	}

	return false
}

// Editable reports whether the operator may edit the column.
func (c Column) Editable() bool {
	return c == ColComment
}

// Header is the label shown for the column.
func (c Column) Header() string {
	switch c {
	case ColLastSeenActive:
		return "Active"
	case ColLastSeenInactive:
		return "Inactive"
	case ColLastWrite:
		return "Last Write"
	case ColRemoteAddr:
		return "Address"
	default:
		return string(c)
	}
}

// Cell is one displayed value. Age cells additionally carry the raw timestamp
// and its exact rendering as Title.
type Cell struct {
	Text  string
	Age   int64
	Title string
}

type cells map[Column]*Cell

func newCells(columns []Column) cells {
	out := make(cells, len(columns))

	for _, col := range columns {
		out[col] = &Cell{}
	}

	return out
}

func (c cells) get(col Column) Cell {
	if cell, ok := c[col]; ok {
		return *cell
	}

	return Cell{}
}
