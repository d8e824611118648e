package core

import (
	"errors"
	"testing"
)

func TestValidateCourse(t *testing.T) {
	tests := []struct {
		name    string
		course  *Course
		wantErr error
	}{
		{
			name:    "valid course",
			course:  &Course{DepartmentShort: "CSCI", Code: "0150", Title: "Intro"},
			wantErr: nil,
		},
		{
			name:    "nil course",
			course:  nil,
			wantErr: ErrInvalidCourse,
		},
		{
			name:    "missing code",
			course:  &Course{DepartmentShort: "CSCI", Title: "Intro"},
			wantErr: ErrInvalidCourse,
		},
		{
			name:    "missing department",
			course:  &Course{Code: "0150", Title: "Intro"},
			wantErr: ErrInvalidCourse,
		},
		{
			name:    "missing title",
			course:  &Course{DepartmentShort: "CSCI", Code: "0150"},
			wantErr: ErrInvalidCourse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCourse(tt.course)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateCourse() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateCourse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCatalog(t *testing.T) {
	t.Run("unique identities", func(t *testing.T) {
		courses := []*Course{
			{DepartmentShort: "CSCI", Code: "0150", Title: "A"},
			{DepartmentShort: "CSCI", Code: "0160", Title: "B"},
			{DepartmentShort: "MATH", Code: "0150", Title: "C"},
		}
		if err := ValidateCatalog(courses); err != nil {
			t.Errorf("ValidateCatalog() error = %v, want nil", err)
		}
	})

	t.Run("duplicate identity", func(t *testing.T) {
		courses := []*Course{
			{DepartmentShort: "CSCI", Code: "0150", Title: "A"},
			{DepartmentShort: "CSCI", Code: "0150", Title: "B"},
		}
		err := ValidateCatalog(courses)
		if !errors.Is(err, ErrDuplicateCourse) {
			t.Errorf("ValidateCatalog() error = %v, want %v", err, ErrDuplicateCourse)
		}
	})

	t.Run("invalid entry", func(t *testing.T) {
		courses := []*Course{{DepartmentShort: "CSCI", Title: "A"}}
		err := ValidateCatalog(courses)
		if !errors.Is(err, ErrInvalidCourse) {
			t.Errorf("ValidateCatalog() error = %v, want %v", err, ErrInvalidCourse)
		}
	})
}

func TestValidateEmbedding(t *testing.T) {
	course := &Course{DepartmentShort: "CSCI", Code: "0150"}

	if err := ValidateEmbedding(course, 3); !errors.Is(err, ErrMissingEmbedding) {
		t.Errorf("ValidateEmbedding() error = %v, want %v", err, ErrMissingEmbedding)
	}

	course.Embedding = []float32{1, 0}
	if err := ValidateEmbedding(course, 3); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("ValidateEmbedding() error = %v, want %v", err, ErrDimensionMismatch)
	}

	course.Embedding = []float32{1, 0, 0}
	if err := ValidateEmbedding(course, 3); err != nil {
		t.Errorf("ValidateEmbedding() error = %v, want nil", err)
	}
}

func TestErrorScope(t *testing.T) {
	base := errors.New("boom")

	reqErr := RequestFatal("embed query", base)
	if !IsRequestScoped(reqErr) {
		t.Errorf("IsRequestScoped(RequestFatal) = false")
	}
	if !errors.Is(reqErr, base) {
		t.Errorf("RequestFatal lost the wrapped error")
	}
	if reqErr.Error() != "embed query: boom" {
		t.Errorf("Error() = %q", reqErr.Error())
	}

	procErr := ProcessFatal("load catalog", base)
	if IsRequestScoped(procErr) {
		t.Errorf("IsRequestScoped(ProcessFatal) = true")
	}
	if ScopeOf(base) != ScopeProcess {
		t.Errorf("untagged errors should be process scoped")
	}
	if RequestFatal("x", nil) != nil || ProcessFatal("x", nil) != nil {
		t.Errorf("wrapping nil should return nil")
	}
}
