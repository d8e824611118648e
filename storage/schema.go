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


package storage

import (
	"fmt"

	"github.com/poiesic/coursesearch/core"
)

const (
	// IndexName names the course similarity index.
	IndexName = "idx:course_vss"

	// KeyPrefix namespaces course documents.
	KeyPrefix = "courses:"

	// VectorFieldName is the document field holding the embedding.
	VectorFieldName = "embedding"
)

// FieldType is the indexing type of a field.
type FieldType string

const (
	// FieldText is tokenized full text.
	FieldText FieldType = "TEXT"
	// FieldTag is matched exactly, as a whole value.
	FieldTag FieldType = "TAG"
	// FieldVector is a fixed width float vector.
	FieldVector FieldType = "VECTOR"
)

// Vector index parameters. Only the values below are supported.
const (
	AlgorithmFlat   = "FLAT"
	DataTypeFloat32 = "FLOAT32"
	DistanceCosine  = "COSINE"
)

// VectorOptions describes a vector field.
type VectorOptions struct {
	Algorithm string `json:"algorithm"`
	DataType  string `json:"data_type"`
	Dim       int    `json:"dim"`
	Distance  string `json:"distance"`
}

// Field describes an indexed field of a document.
type Field struct {
	Name   string         `json:"name"`
	Type   FieldType      `json:"type"`
	NoStem bool           `json:"no_stem,omitempty"`
	Vector *VectorOptions `json:"vector,omitempty"`
}

// CreateIndexRequest defines an index over the documents stored under
// Prefix.
type CreateIndexRequest struct {
	Name   string  `json:"name"`
	Prefix string  `json:"prefix"`
	Fields []Field `json:"fields"`
}

// CourseIndexRequest returns the course index definition for vectors of
// width dim.
func CourseIndexRequest(dim int) *CreateIndexRequest {
	return &CreateIndexRequest{
		Name:   IndexName,
		Prefix: KeyPrefix,
		Fields: []Field{
			{Name: "department_short", Type: FieldText, NoStem: true},
			{Name: "code", Type: FieldText, NoStem: true},
			{Name: "professor", Type: FieldText, NoStem: true},
			{Name: "time", Type: FieldText, NoStem: true},
			{Name: "title", Type: FieldText},
			{Name: "description", Type: FieldText},
			{Name: "writ", Type: FieldTag},
			{Name: "soph", Type: FieldTag},
			{Name: "fys", Type: FieldTag},
			{Name: "rpp", Type: FieldTag},
			{
				Name: VectorFieldName,
				Type: FieldVector,
				Vector: &VectorOptions{
					Algorithm: AlgorithmFlat,
					DataType:  DataTypeFloat32,
					Dim:       dim,
					Distance:  DistanceCosine,
				},
			},
		},
	}
}

// Validate checks that the request names an index, a prefix and exactly
// one supported vector field.
func (r *CreateIndexRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidSchema)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: index name is required", ErrInvalidSchema)
	}
	if r.Prefix == "" {
		return fmt.Errorf("%w: key prefix is required", ErrInvalidSchema)
	}

	vectors := 0
	seen := make(map[string]bool, len(r.Fields))
	for _, f := range r.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: field without a name", ErrInvalidSchema)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: field %q declared twice", ErrInvalidSchema, f.Name)
		}
		seen[f.Name] = true

		switch f.Type {
		case FieldText, FieldTag:
		case FieldVector:
			vectors++
			if f.Vector == nil {
				return fmt.Errorf("%w: vector field %q has no options", ErrInvalidSchema, f.Name)
			}
			if f.Vector.Algorithm != AlgorithmFlat || f.Vector.DataType != DataTypeFloat32 || f.Vector.Distance != DistanceCosine {
				return fmt.Errorf("%w: vector field %q: only FLAT FLOAT32 COSINE is supported", ErrInvalidSchema, f.Name)
			}
			if f.Vector.Dim < 1 {
				return fmt.Errorf("%w: vector field %q: DIM must be positive", ErrInvalidSchema, f.Name)
			}
		default:
			return fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidSchema, f.Name, f.Type)
		}
	}
	if vectors != 1 {
		return fmt.Errorf("%w: exactly one vector field is required, got %d", ErrInvalidSchema, vectors)
	}
	return nil
}

// VectorField returns the single vector field of the request.
func (r *CreateIndexRequest) VectorField() Field {
	for _, f := range r.Fields {
		if f.Type == FieldVector {
			return f
		}
	}
	return Field{}
}

// FieldsOfType returns the fields of type t in declaration order.
func (r *CreateIndexRequest) FieldsOfType(t FieldType) []Field {
	var out []Field
	for _, f := range r.Fields {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

// DocumentKey returns the store key of a course, "courses:DEPT:CODE".
func DocumentKey(course *core.Course) string {
	return KeyPrefix + course.DepartmentShort + ":" + course.Code
}
