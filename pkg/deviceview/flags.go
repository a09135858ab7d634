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

// Flags are the per-device state classes the filters key on.
type Flags uint8

const (
	FlagHasComment Flags = 1 << iota
	FlagHasWritten
	FlagHasClients
)

var flagClasses = []struct {
	flag  Flags
	class string
}{
	{FlagHasComment, "HasComment"},
	{FlagHasWritten, "HasWritten"},
	{FlagHasClients, "HasClients"},
}

// Has reports whether every bit of x is set.
func (f Flags) Has(x Flags) bool {
	return f&x == x
}

func (f *Flags) set(x Flags, on bool) {
	if on {
		*f |= x
	} else {
		*f &^= x
	}
}

// Classes lists the class names of the set flags.
func (f Flags) Classes() []string {
	var out []string

	for _, fc := range flagClasses {
		if f.Has(fc.flag) {
			out = append(out, fc.class)
		}
	}

	return out
}
