package storage

import (
	"testing"

	"github.com/poiesic/coursesearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseIndexRequest(t *testing.T) {
	req := CourseIndexRequest(1536)
	require.NoError(t, req.Validate())

	assert.Equal(t, "idx:course_vss", req.Name)
	assert.Equal(t, "courses:", req.Prefix)

	var noStem, stemmed []string
	for _, f := range req.FieldsOfType(FieldText) {
		if f.NoStem {
			noStem = append(noStem, f.Name)
		} else {
			stemmed = append(stemmed, f.Name)
		}
	}
	assert.Equal(t, []string{"department_short", "code", "professor", "time"}, noStem)
	assert.Equal(t, []string{"title", "description"}, stemmed)

	var tags []string
	for _, f := range req.FieldsOfType(FieldTag) {
		tags = append(tags, f.Name)
	}
	assert.Equal(t, []string{"writ", "soph", "fys", "rpp"}, tags)

	vec := req.VectorField()
	require.NotNil(t, vec.Vector)
	assert.Equal(t, "embedding", vec.Name)
	assert.Equal(t, VectorOptions{Algorithm: "FLAT", DataType: "FLOAT32", Dim: 1536, Distance: "COSINE"}, *vec.Vector)
}

func TestCreateIndexRequest_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *CreateIndexRequest)
	}{
		{"no name", func(r *CreateIndexRequest) { r.Name = "" }},
		{"no prefix", func(r *CreateIndexRequest) { r.Prefix = "" }},
		{"zero dim", func(r *CreateIndexRequest) { r.Fields[len(r.Fields)-1].Vector.Dim = 0 }},
		{"hnsw", func(r *CreateIndexRequest) { r.Fields[len(r.Fields)-1].Vector.Algorithm = "HNSW" }},
		{"l2", func(r *CreateIndexRequest) { r.Fields[len(r.Fields)-1].Vector.Distance = "L2" }},
		{"no vector", func(r *CreateIndexRequest) { r.Fields = r.Fields[:len(r.Fields)-1] }},
		{"duplicate field", func(r *CreateIndexRequest) { r.Fields = append(r.Fields, r.Fields[0]) }},
		{"unknown type", func(r *CreateIndexRequest) { r.Fields[0].Type = "GEO" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CourseIndexRequest(4)
			tt.mutate(req)
			assert.ErrorIs(t, req.Validate(), ErrInvalidSchema)
		})
	}

	var nilReq *CreateIndexRequest
	assert.ErrorIs(t, nilReq.Validate(), ErrInvalidSchema)
}

func TestDocumentKey(t *testing.T) {
	course := &core.Course{DepartmentShort: "CSCI", Code: "0220"}
	assert.Equal(t, "courses:CSCI:0220", DocumentKey(course))

	batch := NewWriteBatch([]*core.Course{course, {DepartmentShort: "MATH", Code: "0100"}})
	require.Len(t, batch.Documents, 2)
	assert.Equal(t, "courses:CSCI:0220", batch.Documents[0].Key)
	assert.Equal(t, "courses:MATH:0100", batch.Documents[1].Key)
	assert.Same(t, course, batch.Documents[0].Course)
}

func TestKNNResult_IDs(t *testing.T) {
	res := &KNNResult{Hits: []KNNHit{{ID: "b", Distance: 0.1}, {ID: "a", Distance: 0.2}}}
	assert.Equal(t, []string{"b", "a"}, res.IDs())
}
