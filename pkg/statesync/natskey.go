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

package statesync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/carverauto/devicewatch/pkg/keypath"
)

const (
	natsIDSep    = "="
	natsWildcard = ">"
)

// EncodeKey maps a state key onto the NATS KV key charset: every Kind(id)
// segment becomes Kind=id.
func EncodeKey(key string) (string, error) {
	segments, err := keypath.Split(key)
	if err != nil {
		return "", err
	}

	tokens := make([]string, len(segments))

	for i, seg := range segments {
		tok, err := encodeSegment(seg)
		if err != nil {
			return "", fmt.Errorf("%w: %q", err, key)
		}

		tokens[i] = tok
	}

	return strings.Join(tokens, "."), nil
}

func encodeSegment(seg string) (string, error) {
	kind, rest, hasID := strings.Cut(seg, "(")
	if !validToken(kind) {
		return "", ErrUnencodableKey
	}

	if !hasID {
		return kind, nil
	}

	id, ok := strings.CutSuffix(rest, ")")
	if !ok || !validToken(id) {
		return "", ErrUnencodableKey
	}

	return kind + natsIDSep + id, nil
}

// validToken accepts the NATS KV key characters minus the separators this
// encoding uses.
func validToken(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '/':
		default:
			return false
		}
	}

	return true
}

// DecodeKey reverses EncodeKey.
func DecodeKey(natsKey string) string {
	tokens := strings.Split(natsKey, ".")

	for i, tok := range tokens {
		if kind, id, ok := strings.Cut(tok, natsIDSep); ok {
			tokens[i] = keypath.Segment(kind, id)
		}
	}

	return strings.Join(tokens, ".")
}

// WatchFilters derives NATS subject filters from registration patterns: the
// encoded literal head of each pattern followed by ">".
func WatchFilters(patterns []string) ([]string, error) {
	seen := make(map[string]bool, len(patterns))
	filters := make([]string, 0, len(patterns))

	for _, raw := range patterns {
		p, err := keypath.CompilePattern(raw)
		if err != nil {
			return nil, err
		}

		literal := p.Literal()
		tokens := make([]string, 0, len(literal)+1)

		for _, seg := range literal {
			tok, err := encodeSegment(seg)
			if err != nil {
				return nil, fmt.Errorf("%w: pattern %q", err, raw)
			}

			tokens = append(tokens, tok)
		}

		filter := strings.Join(append(tokens, natsWildcard), ".")
		if !seen[filter] {
			seen[filter] = true
			filters = append(filters, filter)
		}
	}

	return filters, nil
}

// encodeValue serializes a scalar as JSON.
func encodeValue(v any) ([]byte, error) {
	switch v.(type) {
	case string, bool, float64, float32, int, int64, int32, uint, uint64, uint32, json.Number:
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// decodeValue parses a stored JSON scalar. Anything that is not a JSON
// scalar is passed through as a raw string.
func decodeValue(b []byte) any {
	if len(bytes.TrimSpace(b)) == 0 {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return string(b)
	}

	switch v.(type) {
	case map[string]any, []any:
		return string(b)
	default:
		return v
	}
}
