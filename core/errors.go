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


package core

import "errors"

var (
	// ErrInvalidCourse indicates a Course failed validation.
	ErrInvalidCourse = errors.New("invalid course")

	// ErrDuplicateCourse indicates two courses share a department and code.
	ErrDuplicateCourse = errors.New("duplicate course")

	// ErrMissingEmbedding indicates a course has no vector where one is required.
	ErrMissingEmbedding = errors.New("course has no embedding")

	// ErrDimensionMismatch indicates a vector of the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingMismatch indicates the embedder returned a different number
	// of vectors than it was given texts.
	ErrEmbeddingMismatch = errors.New("embedding result mismatch")
)

// Scope says how far an error reaches.
type Scope int

const (
	// ScopeProcess errors abort startup or the indexing path.
	ScopeProcess Scope = iota + 1
	// ScopeRequest errors fail a single search request.
	ScopeRequest
)

func (s Scope) String() string {
	switch s {
	case ScopeProcess:
		return "process"
	case ScopeRequest:
		return "request"
	default:
		return "unknown"
	}
}

// Error tags an underlying error with the operation that failed and its
// scope.
type Error struct {
	Scope Scope
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ProcessFatal wraps err as fatal to the process. Returns nil for a nil err.
func ProcessFatal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Scope: ScopeProcess, Op: op, Err: err}
}

// RequestFatal wraps err as fatal to the current request only.
// Returns nil for a nil err.
func RequestFatal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Scope: ScopeRequest, Op: op, Err: err}
}

// ScopeOf returns the scope of the outermost scoped error in err's chain.
// Untagged errors are treated as process-fatal.
func ScopeOf(err error) Scope {
	var scoped *Error
	if errors.As(err, &scoped) {
		return scoped.Scope
	}
	return ScopeProcess
}

// IsRequestScoped reports whether err only affects a single request.
func IsRequestScoped(err error) bool {
	return err != nil && ScopeOf(err) == ScopeRequest
}
