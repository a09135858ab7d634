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

package age

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	ts := base.UnixMilli()

	tests := []struct {
		name    string
		elapsed time.Duration
		want    string
	}{
		{"zero", 0, "0s"},
		{"sub second floors", 999 * time.Millisecond, "0s"},
		{"seconds", 45 * time.Second, "45s"},
		{"last second bucket", 59*time.Second + 999*time.Millisecond, "59s"},
		{"one minute", time.Minute, "1m"},
		{"minutes floor", 59*time.Minute + 59*time.Second, "59m"},
		{"hours", 3 * time.Hour, "3h"},
		{"hours floor", 23*time.Hour + 59*time.Minute, "23h"},
		{"days", 2*24*time.Hour + 10*time.Second, "2d"},
		{"no upper bound", 400 * 24 * time.Hour, "400d"},
		{"future clamps", -5 * time.Second, "0s"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Format(ts, base.Add(tc.elapsed))
			assert.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormatNever(t *testing.T) {
	got, ok := Format(Never, time.Now())
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestTitle(t *testing.T) {
	assert.Empty(t, Title(Never))

	ts := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, time.UnixMilli(ts).Local().Format(time.RFC1123), Title(ts))
}
