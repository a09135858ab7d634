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

// Package keypath decodes state keys of the form Prefix.Kind(id).Field
// and matches them against registration patterns.
package keypath

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedKey is returned for keys that do not follow the Kind(id).Field grammar.
	ErrMalformedKey = errors.New("malformed key")
	// ErrMalformedPattern is returned for registration patterns that cannot be compiled.
	ErrMalformedPattern = errors.New("malformed pattern")
)

// Path is a decoded state key.
type Path struct {
	Key     string // original key
	Prefix  string // dotted segments before the entity, e.g. "ScoreBoard.Clients"
	Kind    string // entity kind, e.g. "Device"
	ID      string // entity id
	SubID   string // optional segment between the entity and the field
	Field   string // field name
	FieldID string // id carried by the field segment, e.g. "Client(c1)"
}

// Entity returns the fully-qualified entity segment, e.g. "ScoreBoard.Clients.Device(d1)".
func (p Path) Entity() string {
	return Join(p.Prefix, Segment(p.Kind, p.ID))
}

// FieldKey builds the key for another field of the same entity.
func (p Path) FieldKey(field string) string {
	return p.Entity() + "." + field
}

// Segment renders a Kind(id) segment.
func Segment(kind, id string) string {
	return kind + "(" + id + ")"
}

// Join concatenates non-empty dotted parts.
func Join(parts ...string) string {
	nonEmpty := parts[:0:0]

	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}

	return strings.Join(nonEmpty, ".")
}

// Key builds a full key for an entity field.
func Key(prefix, kind, id, field string) string {
	return Join(prefix, Segment(kind, id), field)
}

// Parse decodes key into a Path.
func Parse(key string) (Path, error) {
	segments, err := Split(key)
	if err != nil {
		return Path{}, err
	}

	entity := -1

	for i, seg := range segments {
		if strings.ContainsRune(seg, '(') {
			entity = i
			break
		}
	}

	if entity < 0 {
		return Path{}, fmt.Errorf("%w: %q has no entity segment", ErrMalformedKey, key)
	}

	kind, id, ok := splitSegment(segments[entity])
	if !ok || kind == "" || id == "" {
		return Path{}, fmt.Errorf("%w: %q has an invalid entity segment", ErrMalformedKey, key)
	}

	p := Path{
		Key:    key,
		Prefix: strings.Join(segments[:entity], "."),
		Kind:   kind,
		ID:     id,
	}

	rest := segments[entity+1:]

	switch len(rest) {
	case 1:
	case 2:
		p.SubID = rest[0]
		rest = rest[1:]
	default:
		return Path{}, fmt.Errorf("%w: %q has %d trailing segments", ErrMalformedKey, key, len(rest))
	}

	field, fieldID, ok := splitSegment(rest[0])
	if !ok || field == "" {
		return Path{}, fmt.Errorf("%w: %q has an invalid field segment", ErrMalformedKey, key)
	}

	p.Field = field
	p.FieldID = fieldID

	return p, nil
}

// Split breaks key on dots that are not enclosed in parentheses.
func Split(key string) ([]string, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrMalformedKey)
	}

	var (
		segments []string
		depth    int
		start    int
	)

	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: %q has unbalanced parentheses", ErrMalformedKey, key)
			}
		case '.':
			if depth > 0 {
				continue
			}

			if i == start {
				return nil, fmt.Errorf("%w: %q has an empty segment", ErrMalformedKey, key)
			}

			segments = append(segments, key[start:i])
			start = i + 1
		}
	}

	if depth != 0 {
		return nil, fmt.Errorf("%w: %q has unbalanced parentheses", ErrMalformedKey, key)
	}

	if start == len(key) {
		return nil, fmt.Errorf("%w: %q has an empty segment", ErrMalformedKey, key)
	}

	return append(segments, key[start:]), nil
}

// splitSegment splits "Kind(id)" into its parts. A segment without
// parentheses is returned as the kind with an empty id.
func splitSegment(seg string) (kind, id string, ok bool) {
	open := strings.IndexByte(seg, '(')
	if open < 0 {
		return seg, "", !strings.ContainsRune(seg, ')')
	}

	if !strings.HasSuffix(seg, ")") {
		return "", "", false
	}

	return seg[:open], seg[open+1 : len(seg)-1], true
}
