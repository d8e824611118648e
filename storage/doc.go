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


// Package storage defines the backing store of the course similarity index.
//
// The interfaces here decouple the indexing and search paths from the store
// implementation. Every store operation is a typed request/response pair:
// CreateIndexRequest defines the schema, WriteBatch carries the documents,
// KNNQuery and KNNResult describe a hybrid search. The only textual query
// language left is the pre-filter expression, kept opaque here.
//
// # Architecture
//
//   - IndexManager: Reset, CreateIndex, Populate, IsPopulated
//   - QueryStore: Query (identifiers only) and GetDocuments (bodies)
//   - Pinger: readiness check used by the startup gate
//   - Index: all of the above plus Close
//
// # Usage
//
//	store, err := badger.OpenStore("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore()
//
// # Thread Safety
//
// All implementations must be safe for concurrent searches. Index lifecycle
// operations are not meant to run while searches are being served.
package storage
