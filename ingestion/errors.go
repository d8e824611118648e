// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrStoreRequired is returned when an index store is not provided.
	ErrStoreRequired = errors.New("index store required")

	// ErrBuilderRequired is returned when a snapshot builder is not provided.
	ErrBuilderRequired = errors.New("snapshot builder required")

	// ErrInvalidMaxAttempts is returned when a retry bound is not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrNotReady is returned when the backing store did not answer within
	// the readiness bound.
	ErrNotReady = errors.New("store not ready")

	// ErrStaleSnapshot is returned when the embedded snapshot was not built
	// from the current raw snapshot.
	ErrStaleSnapshot = errors.New("embedded snapshot is stale")
)
