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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want Path
	}{
		{
			name: "device field",
			key:  "ScoreBoard.Clients.Device(d1).Name",
			want: Path{Prefix: "ScoreBoard.Clients", Kind: "Device", ID: "d1", Field: "Name"},
		},
		{
			name: "no prefix",
			key:  "Client(c1).Created",
			want: Path{Kind: "Client", ID: "c1", Field: "Created"},
		},
		{
			name: "sub id",
			key:  "ScoreBoard.Team(1).Skater(abc).Name",
			want: Path{Prefix: "ScoreBoard", Kind: "Team", ID: "1", SubID: "Skater(abc)", Field: "Name"},
		},
		{
			name: "field carrying an id",
			key:  "ScoreBoard.Clients.Device(d1).Client(c9)",
			want: Path{Prefix: "ScoreBoard.Clients", Kind: "Device", ID: "d1", Field: "Client", FieldID: "c9"},
		},
		{
			name: "dotted id",
			key:  "ScoreBoard.Clients.Device(10.0.0.1).RemoteAddr",
			want: Path{Prefix: "ScoreBoard.Clients", Kind: "Device", ID: "10.0.0.1", Field: "RemoteAddr"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.key)
			require.NoError(t, err)

			tc.want.Key = tc.key
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	keys := []string{
		"",
		"ScoreBoard.Clients",
		"ScoreBoard.Clients.Device(d1)",
		"ScoreBoard.Clients.Device().Name",
		"ScoreBoard.Clients.(d1).Name",
		"ScoreBoard.Clients.Device(d1.Name",
		"ScoreBoard.Clients.Device(d1)).Name",
		"ScoreBoard.Clients.Device(d1)..Name",
		"ScoreBoard.Clients.Device(d1).Name.",
		"ScoreBoard.Clients.Device(d1).a.b.c",
		"ScoreBoard.Clients.Device(d1)x.Name",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			_, err := Parse(key)
			require.ErrorIs(t, err, ErrMalformedKey)
		})
	}
}

func TestPathHelpers(t *testing.T) {
	p, err := Parse("ScoreBoard.Clients.Client(c1).Wrote")
	require.NoError(t, err)

	assert.Equal(t, "ScoreBoard.Clients.Client(c1)", p.Entity())
	assert.Equal(t, "ScoreBoard.Clients.Client(c1).Device", p.FieldKey("Device"))
	assert.Equal(t, "ScoreBoard.Clients.Device(d1).Name", Key("ScoreBoard.Clients", "Device", "d1", "Name"))
	assert.Equal(t, "Device(d1).Name", Key("", "Device", "d1", "Name"))
}

func TestPatternMatch(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"ScoreBoard.Clients.Device(*)", "ScoreBoard.Clients.Device(d1).Name", true},
		{"ScoreBoard.Clients.Device(*)", "ScoreBoard.Clients.Device(d1).Client(c1)", true},
		{"ScoreBoard.Clients.Device(*)", "ScoreBoard.Clients.Client(c1).Name", false},
		{"ScoreBoard.Clients.Device(*)", "ScoreBoard.Clients.Device().Name", false},
		{"ScoreBoard.Clients.Device(*)", "ScoreBoard.Clients", false},
		{"ScoreBoard.Clients.Device(d1)", "ScoreBoard.Clients.Device(d1).Name", true},
		{"ScoreBoard.Clients.Device(d1)", "ScoreBoard.Clients.Device(d2).Name", false},
		{"ScoreBoard.Clients", "ScoreBoard.Clients.Client(c1).Name", true},
		{"ScoreBoard.Clients", "ScoreBoard.Clock(1).Name", false},
		{"ScoreBoard.Clients", "ScoreBoard.Clients", true},
	}

	for _, tc := range tests {
		t.Run(tc.pattern+"|"+tc.key, func(t *testing.T) {
			p, err := CompilePattern(tc.pattern)
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.Match(tc.key))
		})
	}
}

func TestCompilePatternRejectsPartialWildcard(t *testing.T) {
	_, err := CompilePattern("ScoreBoard.Clients.Device(a*)")
	require.ErrorIs(t, err, ErrMalformedPattern)

	_, err = CompilePattern("ScoreBoard..Device(*)")
	require.ErrorIs(t, err, ErrMalformedPattern)
}

func TestPatternLiteral(t *testing.T) {
	p, err := CompilePattern("ScoreBoard.Clients.Device(*)")
	require.NoError(t, err)
	assert.Equal(t, []string{"ScoreBoard", "Clients"}, p.Literal())

	p, err = CompilePattern("ScoreBoard.Clients.Device(d1)")
	require.NoError(t, err)
	assert.Equal(t, []string{"ScoreBoard", "Clients", "Device(d1)"}, p.Literal())
}
