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
	"encoding/hex"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// DefaultDimensions is the embedding width of text-embedding-3-small.
const DefaultDimensions = 1536

// Course is a single catalog entry. Embedding is empty until the entry has
// been through the embedding builder.
type Course struct {
	DepartmentFull  string    `json:"department_full"`
	DepartmentShort string    `json:"department_short" validate:"required"`
	Code            string    `json:"code" validate:"required"`
	Title           string    `json:"title" validate:"required"`
	Professor       string    `json:"professor"`
	Time            string    `json:"time"`
	Description     string    `json:"description"`
	Writ            bool      `json:"writ"`
	Soph            bool      `json:"soph"`
	Fys             bool      `json:"fys"`
	Rpp             bool      `json:"rpp"`
	Embedding       []float32 `json:"embedding,omitempty"`
}

// Identity returns the (department, code) pair that identifies a course
// within a snapshot.
func (c *Course) Identity() string {
	return c.DepartmentShort + ":" + c.Code
}

// HasEmbedding reports whether the course carries a vector.
func (c *Course) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// WithoutEmbedding returns a shallow copy with the vector removed.
func (c *Course) WithoutEmbedding() *Course {
	clone := *c
	clone.Embedding = nil
	return &clone
}

// EmbeddingText renders the text that is sent to the embedding model for
// this course.
func (c *Course) EmbeddingText() string {
	var sb strings.Builder
	sb.WriteString("Department: " + c.DepartmentFull + " - " + c.DepartmentShort + "\n")
	sb.WriteString("Course code: " + c.Code + "\n")
	sb.WriteString("Title: " + c.Title + "\n")
	sb.WriteString("Professor: " + c.Professor + "\n")
	sb.WriteString("Time: " + c.Time + "\n")
	sb.WriteString("Description: " + c.Description + "\n")
	if c.Writ {
		sb.WriteString("This course satisfies the WRIT / writing requirement.\n")
	}
	if c.Soph {
		sb.WriteString("This course is a SOPH / sophomore seminar.\n")
	}
	if c.Fys {
		sb.WriteString("This course is a FYS / first-year seminar.\n")
	}
	if c.Rpp {
		sb.WriteString("This course is under the RPP / Race Power Privilege category.\n")
	}
	return sb.String()
}

// Fingerprint returns the hex encoded blake2b-256 digest of data.
func Fingerprint(data []byte) string {
	h, _ := blake2b.New(32, nil) // 32 bytes = 256 bits
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
