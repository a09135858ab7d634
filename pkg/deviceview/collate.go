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
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	CollationBinary = "binary"
	CollationFold   = "fold"
)

// Collator orders device names.
type Collator interface {
	Compare(a, b string) int
}

// NewCollator returns the collator named by name: "binary" (or empty) for
// case-sensitive byte order, "fold" for Unicode case-insensitive order, or a
// BCP 47 language tag for case-insensitive locale order.
func NewCollator(name string) (Collator, error) {
	switch strings.ToLower(name) {
	case "", CollationBinary:
		return binaryCollator{}, nil
	case CollationFold:
		return foldCollator{caser: cases.Fold()}, nil
	}

	tag, err := language.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrUnknownCollation, name, err)
	}

	return localeCollator{c: collate.New(tag, collate.IgnoreCase)}, nil
}

type binaryCollator struct{}

func (binaryCollator) Compare(a, b string) int {
	return strings.Compare(a, b)
}

type foldCollator struct {
	caser cases.Caser
}

func (f foldCollator) Compare(a, b string) int {
	return strings.Compare(f.caser.String(a), f.caser.String(b))
}

type localeCollator struct {
	c *collate.Collator
}

func (l localeCollator) Compare(a, b string) int {
	return l.c.CompareString(a, b)
}
