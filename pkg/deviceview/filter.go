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
)

// FilterDef is one toggleable category of device rows.
type FilterDef struct {
	Name    string
	Class   string
	Default bool

	member func(Flags) bool
}

// Member reports whether a row with flags belongs to the filter's category.
func (f FilterDef) Member(flags Flags) bool {
	return f.member(flags)
}

var filterDefs = []FilterDef{
	{Name: "Comments", Class: "ShowComments", Default: true, member: func(f Flags) bool { return f.Has(FlagHasComment) }},
	{Name: "Writers", Class: "ShowWriters", Default: true, member: func(f Flags) bool { return f.Has(FlagHasWritten) }},
	{Name: "Active", Class: "ShowActive", Default: true, member: func(f Flags) bool { return f.Has(FlagHasClients) }},
	{Name: "Inactive", Class: "ShowInactive", Default: false, member: func(f Flags) bool { return !f.Has(FlagHasClients) }},
}

// Filters holds the table-level toggle state. A row is visible when every
// filter whose category it belongs to is enabled.
type Filters struct {
	enabled map[string]bool
}

// NewFilters starts from the default states, then applies overrides.
// Overrides naming unknown filters are ignored.
func NewFilters(overrides map[string]bool) *Filters {
	f := &Filters{enabled: make(map[string]bool, len(filterDefs))}

	for _, def := range filterDefs {
		f.enabled[def.Name] = def.Default
	}

	for name, on := range overrides {
		f.Set(name, on)
	}

	return f
}

// Defs lists the filters with their default states.
func (*Filters) Defs() []FilterDef {
	return slices.Clone(filterDefs)
}

// Set enables or disables the named filter and reports whether the name is known.
func (f *Filters) Set(name string, on bool) bool {
	if _, ok := f.enabled[name]; !ok {
		return false
	}

	f.enabled[name] = on

	return true
}

// Toggle flips the named filter and returns its new state.
func (f *Filters) Toggle(name string) bool {
	on := !f.enabled[name]
	f.Set(name, on)

	return f.enabled[name]
}

// Enabled reports the state of the named filter.
func (f *Filters) Enabled(name string) bool {
	return f.enabled[name]
}

// Classes lists the container classes currently set, in definition order.
func (f *Filters) Classes() []string {
	var out []string

	for _, def := range filterDefs {
		if f.enabled[def.Name] {
			out = append(out, def.Class)
		}
	}

	return out
}

// Visible evaluates the row predicate for a device with flags.
func (f *Filters) Visible(flags Flags) bool {
	for _, def := range filterDefs {
		if def.Member(flags) && !f.enabled[def.Name] {
			return false
		}
	}

	return true
}
