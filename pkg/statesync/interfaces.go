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
	"context"

	"github.com/carverauto/devicewatch/pkg/keypath"
)

//go:generate mockgen -destination=mock_source.go -package=statesync github.com/carverauto/devicewatch/pkg/statesync Source

// Source is a transport delivering (key, value) changes from the state store.
type Source interface {
	// Name identifies the transport in logs and the status line.
	Name() string
	// Run subscribes to patterns and sends changes to out until ctx is done.
	// It must not send after returning.
	Run(ctx context.Context, patterns []string, out chan<- Batch) error
	// Set writes value under key. A nil value deletes the key.
	Set(ctx context.Context, key string, value any) error
	Close() error
}

// Change is one key update. A nil Value deletes the key.
type Change struct {
	Key   string
	Value any
}

// Batch is a group of changes applied together. A Snapshot batch carries
// the complete state below the registered patterns; keys missing from it
// are treated as deleted.
type Batch struct {
	Changes  []Change
	Snapshot bool
}

// Handler receives the parsed key and value of a change. value is nil
// for deletions.
type Handler func(p keypath.Path, value any)
