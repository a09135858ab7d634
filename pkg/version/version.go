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

// Package version reports the devicewatch build. The values are injected with
// -ldflags "-X github.com/carverauto/devicewatch/pkg/version.version=...".
package version

import "fmt"

const product = "devicewatch"

//nolint:gochecknoglobals // set by the linker
var (
	version = "dev"
	buildID = "dev"
)

// Version is the release version.
func Version() string {
	return version
}

// BuildID identifies the build that produced the binary.
func BuildID() string {
	return buildID
}

// String is the human readable form printed by -version.
func String() string {
	return fmt.Sprintf("%s %s (build %s)", product, version, buildID)
}

// UserAgent identifies devicewatch to the state store.
func UserAgent() string {
	return product + "/" + version
}
