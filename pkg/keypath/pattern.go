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

package keypath

import (
	"fmt"
	"strings"
)

const wildcard = "*"

// Pattern matches keys against a registration path such as
// "ScoreBoard.Clients.Device(*)". A wildcard is only allowed as a whole id.
type Pattern struct {
	raw      string
	segments []patternSegment
}

type patternSegment struct {
	kind string
	id   string
	any  bool // id is the wildcard
	bare bool // no parentheses
}

// CompilePattern parses a registration pattern.
func CompilePattern(raw string) (Pattern, error) {
	segments, err := Split(raw)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w: %w", ErrMalformedPattern, err)
	}

	p := Pattern{raw: raw, segments: make([]patternSegment, 0, len(segments))}

	for _, seg := range segments {
		kind, id, ok := splitSegment(seg)
		if !ok || kind == "" {
			return Pattern{}, fmt.Errorf("%w: %q", ErrMalformedPattern, raw)
		}

		if strings.Contains(id, wildcard) && id != wildcard {
			return Pattern{}, fmt.Errorf("%w: %q uses a partial wildcard", ErrMalformedPattern, raw)
		}

		p.segments = append(p.segments, patternSegment{
			kind: kind,
			id:   id,
			any:  id == wildcard,
			bare: !strings.ContainsRune(seg, '('),
		})
	}

	return p, nil
}

// String returns the pattern as registered.
func (p Pattern) String() string {
	return p.raw
}

// Literal returns the leading segments that contain no wildcard.
func (p Pattern) Literal() []string {
	out := make([]string, 0, len(p.segments))

	for _, seg := range p.segments {
		if seg.any {
			break
		}

		if seg.bare {
			out = append(out, seg.kind)
		} else {
			out = append(out, Segment(seg.kind, seg.id))
		}
	}

	return out
}

// Match reports whether key equals the pattern or lies below it.
func (p Pattern) Match(key string) bool {
	segments, err := Split(key)
	if err != nil || len(segments) < len(p.segments) {
		return false
	}

	for i, ps := range p.segments {
		kind, id, ok := splitSegment(segments[i])
		if !ok || kind != ps.kind {
			return false
		}

		hasParens := strings.ContainsRune(segments[i], '(')

		switch {
		case ps.bare:
			if hasParens {
				return false
			}
		case ps.any:
			if !hasParens || id == "" {
				return false
			}
		default:
			if !hasParens || id != ps.id {
				return false
			}
		}
	}

	return true
}
