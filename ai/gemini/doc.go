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


// Package gemini provides the embedding service using the Google Gemini API.
//
// gemini-embedding-001 accepts an output dimensionality, so the same 1536
// wide index can be served by either provider. Documents are embedded with
// the RETRIEVAL_DOCUMENT task type and queries with RETRIEVAL_QUERY.
package gemini
