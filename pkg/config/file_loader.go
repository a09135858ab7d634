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

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrEmptyConfigFile is returned for a file holding no JSON value.
	ErrEmptyConfigFile = errors.New("config file is empty")
	// ErrTrailingData is returned when anything but whitespace follows the config object.
	ErrTrailingData = errors.New("unexpected data after config object")
)

// FileConfigLoader decodes a single JSON object from a local file.
type FileConfigLoader struct{}

// Load implements ConfigLoader. dst must point to a struct; fields absent
// from the file keep their current values.
func (*FileConfigLoader) Load(_ context.Context, path string, dst any) error {
	if _, err := structTarget(dst); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", path, err)
	}
	defer func() { _ = f.Close() }()

	dec := json.NewDecoder(f)

	switch err := dec.Decode(dst); {
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: %s", ErrEmptyConfigFile, path)
	case err != nil:
		return fmt.Errorf("failed to unmarshal JSON from '%s': %w", path, err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s", ErrTrailingData, path)
	}

	return nil
}
