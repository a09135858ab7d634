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

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrings(t *testing.T) {
	old, oldBuild := version, buildID
	t.Cleanup(func() { version, buildID = old, oldBuild })

	version, buildID = "1.2.0", "abc123"

	assert.Equal(t, "1.2.0", Version())
	assert.Equal(t, "abc123", BuildID())
	assert.Equal(t, "devicewatch 1.2.0 (build abc123)", String())
	assert.Equal(t, "devicewatch/1.2.0", UserAgent())
}
