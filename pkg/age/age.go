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

// Package age renders millisecond timestamps as coarse relative ages ("45s", "3h").
package age

import (
	"strconv"
	"time"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// Never is the timestamp value meaning the event has not happened.
const Never int64 = 0

// Format renders the time elapsed from ts (milliseconds since the epoch) to now.
// It returns false for Never, in which case callers keep whatever they showed before.
// Timestamps in the future render as "0s".
func Format(ts int64, now time.Time) (string, bool) {
	if ts == Never {
		return "", false
	}

	elapsed := (now.UnixMilli() - ts) / int64(time.Second/time.Millisecond)
	if elapsed < 0 {
		elapsed = 0
	}

	switch {
	case elapsed < secondsPerMinute:
		return strconv.FormatInt(elapsed, 10) + "s", true
	case elapsed < secondsPerHour:
		return strconv.FormatInt(elapsed/secondsPerMinute, 10) + "m", true
	case elapsed < secondsPerDay:
		return strconv.FormatInt(elapsed/secondsPerHour, 10) + "h", true
	default:
		return strconv.FormatInt(elapsed/secondsPerDay, 10) + "d", true
	}
}

// Title renders the exact timestamp, used as the hover text of an age cell.
func Title(ts int64) string {
	if ts == Never {
		return ""
	}

	return time.UnixMilli(ts).Local().Format(time.RFC1123)
}
