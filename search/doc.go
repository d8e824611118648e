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


// Package search answers free-text queries over the course catalog.
//
// A query is truncated to MaxQueryLength characters. Its first quoted span,
// if any, becomes a pre-filter in the store's filter language; the whole
// query is embedded and the store returns the nearest documents passing the
// pre-filter, closest first, capped at MaxResults.
//
// Errors are tagged with core.RequestFatal so a failed search never stops
// the server.
package search
