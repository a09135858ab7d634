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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFiltersDefaults(t *testing.T) {
	f := NewFilters(nil)

	var names []string

	for _, def := range f.Defs() {
		names = append(names, def.Name)
		assert.Equal(t, def.Default, f.Enabled(def.Name), def.Name)
	}

	assert.Equal(t, []string{"Comments", "Writers", "Active", "Inactive"}, names)
	assert.Equal(t, []string{"ShowComments", "ShowWriters", "ShowActive"}, f.Classes())
}

func TestFiltersSetAndToggle(t *testing.T) {
	f := NewFilters(nil)

	assert.False(t, f.Set("Nope", true))
	assert.False(t, f.Enabled("Nope"))

	assert.True(t, f.Set("Comments", false))
	assert.False(t, f.Enabled("Comments"))

	assert.True(t, f.Toggle("Comments"))
	assert.True(t, f.Toggle("Inactive"))
	assert.False(t, f.Toggle("Inactive"))
	assert.False(t, f.Toggle("Nope"))
}

func TestFilterMembership(t *testing.T) {
	members := func(flags Flags) []string {
		var out []string

		for _, def := range NewFilters(nil).Defs() {
			if def.Member(flags) {
				out = append(out, def.Name)
			}
		}

		return out
	}

	assert.Equal(t, []string{"Inactive"}, members(0))
	assert.Equal(t, []string{"Active"}, members(FlagHasClients))
	assert.Equal(t, []string{"Comments", "Writers", "Active"}, members(FlagHasComment|FlagHasWritten|FlagHasClients))
	assert.Equal(t, []string{"Comments", "Inactive"}, members(FlagHasComment))
}

func TestFiltersVisible(t *testing.T) {
	tests := []struct {
		name    string
		flags   Flags
		enabled map[string]bool
		want    bool
	}{
		{name: "active device", flags: FlagHasClients, want: true},
		{name: "inactive device hidden by default", flags: 0, want: false},
		{name: "inactive device shown", flags: 0, enabled: map[string]bool{"Inactive": true}, want: true},
		{name: "active commented device", flags: FlagHasClients | FlagHasComment, want: true},
		{name: "comments off hides commented", flags: FlagHasClients | FlagHasComment, enabled: map[string]bool{"Comments": false}, want: false},
		{name: "writers off hides writers", flags: FlagHasClients | FlagHasWritten, enabled: map[string]bool{"Writers": false}, want: false},
		{name: "writers off keeps non writers", flags: FlagHasClients, enabled: map[string]bool{"Writers": false}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewFilters(tt.enabled).Visible(tt.flags))
		})
	}
}

func TestText(t *testing.T) {
	assert.Empty(t, Text(nil))
	assert.Equal(t, "alpha", Text("alpha"))
	assert.Equal(t, "1.5", Text(1.5))
	assert.Equal(t, "1700000000000", Text(float64(1700000000000)))
	assert.Equal(t, "12", Text(json.Number("12")))
	assert.Equal(t, "true", Text(true))
	assert.Equal(t, "7", Text(7))
}

func TestMillis(t *testing.T) {
	assert.Equal(t, int64(1700000000000), Millis(float64(1700000000000)))
	assert.Equal(t, int64(1700000000000), Millis(json.Number("1700000000000")))
	assert.Equal(t, int64(1700000000000), Millis("1700000000000"))
	assert.Equal(t, int64(12), Millis("12.9"))
	assert.Equal(t, int64(5), Millis(5))
	assert.Zero(t, Millis("soon"))
	assert.Zero(t, Millis(true))
	assert.Zero(t, Millis(nil))
}

func TestColumns(t *testing.T) {
	assert.True(t, ColName.Spans())
	assert.True(t, ColLastSeenInactive.Spans())
	assert.False(t, ColComment.Spans())
	assert.True(t, ColComment.Editable())
	assert.False(t, ColName.Editable())
	assert.Equal(t, "Last Write", ColLastWrite.Header())
	assert.Equal(t, "Platform", ColPlatform.Header())
}
