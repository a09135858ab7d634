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

import "errors"

var (
	ErrAlreadyConnected = errors.New("statesync: client already connected")
	ErrNotConnected     = errors.New("statesync: client not connected")
	ErrNoHandlers       = errors.New("statesync: no handlers registered")
	errNilHandler       = errors.New("statesync: nil handler")

	// ErrUnencodableKey is returned for keys the NATS key charset cannot carry.
	ErrUnencodableKey = errors.New("key cannot be encoded for NATS")
	// ErrUnsupportedValue is returned when a value is not a JSON scalar.
	ErrUnsupportedValue = errors.New("unsupported value type")
	errUnexpectedFrame  = errors.New("unexpected websocket frame")
)
