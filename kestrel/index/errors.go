// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package index implements the index lifecycle, the per-shard document
// version cache, and the document service atop the inverted-index engine.
package index

import "github.com/pkg/errors"

// Lifecycle errors. They indicate caller misuse of the current state and are
// correctable without retrying.
var (
	ErrIndexNotFound       = errors.New("index not found")
	ErrIndexAlreadyExists  = errors.New("index already exists")
	ErrIndexAlreadyOnline  = errors.New("index is already online")
	ErrIndexAlreadyOffline = errors.New("index is already offline")
	ErrIndexNotOnline      = errors.New("index is not online")
)

// Concurrency and version errors. They are expected outcomes of optimistic
// concurrency; the caller decides whether to retry with a fresh version.
var (
	ErrDocumentAlreadyExists = errors.New("document id already exists")
	ErrDocumentNotFound      = errors.New("document id not found")
	ErrVersionMismatch       = errors.New("version mismatch")
	ErrInvalidVersion        = errors.New("invalid version")
)

// Document validation errors.
var (
	ErrUnknownField      = errors.New("field is not defined in the index schema")
	ErrInvalidFieldValue = errors.New("field value does not match the field type")
	ErrMissingDocumentID = errors.New("document id is required")
)

// Query building errors.
var (
	ErrFieldNotSearchable = errors.New("field is not searchable")
	ErrInvalidQuery       = errors.New("invalid query")
)

// ErrOpeningIndexWriter indicates the storage engine failed to open a shard
// writer. The underlying cause is captured in the wrapped message.
var ErrOpeningIndexWriter = errors.New("error opening index writer")

// ErrProfileNotFound indicates an unknown search profile.
var ErrProfileNotFound = errors.New("search profile not found")
