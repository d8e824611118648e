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

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateCourse validates a Course according to catalog rules.
//
// Validation rules:
//   - DepartmentShort, Code and Title must not be empty
//
// NOT validated:
//   - Embedding (empty until the embedding builder runs)
func ValidateCourse(course *Course) error {
	if course == nil {
		return fmt.Errorf("%w: course is nil", ErrInvalidCourse)
	}
	if err := validate.Struct(course); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidCourse, course.Identity(), err)
	}
	return nil
}

// ValidateCatalog validates every course and checks that no identity
// appears twice.
func ValidateCatalog(courses []*Course) error {
	seen := make(map[string]int, len(courses))
	for i, course := range courses {
		if err := ValidateCourse(course); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		id := course.Identity()
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s at entries %d and %d", ErrDuplicateCourse, id, prev, i)
		}
		seen[id] = i
	}
	return nil
}

// ValidateEmbedding checks that a course carries a vector of exactly dim
// values.
func ValidateEmbedding(course *Course, dim int) error {
	if !course.HasEmbedding() {
		return fmt.Errorf("%w: %s", ErrMissingEmbedding, course.Identity())
	}
	if len(course.Embedding) != dim {
		return fmt.Errorf("%w: %s: expected %d, got %d",
			ErrDimensionMismatch, course.Identity(), dim, len(course.Embedding))
	}
	return nil
}
