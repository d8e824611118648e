package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/coursesearch/core"
	"github.com/poiesic/coursesearch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 4

func unit(i int) []float32 {
	v := make([]float32, testDim)
	v[i%testDim] = 1
	return v
}

func testCourses() []*core.Course {
	return []*core.Course{
		{DepartmentShort: "CSCI", Code: "0150", Title: "Introduction to Programming", Professor: "Ada Lovelace",
			Description: "Learning to program computers.", Writ: false, Embedding: unit(0)},
		{DepartmentShort: "CSCI", Code: "1470", Title: "Deep Learning", Professor: "Geoffrey Hinton",
			Description: "Neural networks and machine learning.", Soph: true, Embedding: unit(1)},
		{DepartmentShort: "HIST", Code: "0220", Title: "Medieval Europe", Professor: "Marc Bloch",
			Description: "Feudal society and writing history.", Writ: true, Embedding: unit(2)},
		{DepartmentShort: "MUSC", Code: "0010", Title: "Music Theory", Professor: "Nadia Boulanger",
			Description: "Harmony and counterpoint.", Fys: true, Embedding: unit(3)},
	}
}

func newPopulatedStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.CreateIndex(ctx, storage.CourseIndexRequest(testDim)))
	res, err := store.Populate(ctx, storage.NewWriteBatch(testCourses()))
	require.NoError(t, err)
	require.Equal(t, 4, res.Written)
	return store
}

func TestStore_EmptyStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(ctx))

	populated, err := store.IsPopulated(ctx)
	require.NoError(t, err)
	assert.False(t, populated)

	_, err = store.Query(ctx, &storage.KNNQuery{PreFilter: "*", K: 3, Vector: unit(0)})
	assert.ErrorIs(t, err, storage.ErrIndexNotFound)
}

func TestStore_ResetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newPopulatedStore(t)

	require.NoError(t, store.Reset(ctx))
	require.NoError(t, store.Reset(ctx))

	populated, err := store.IsPopulated(ctx)
	require.NoError(t, err)
	assert.False(t, populated)

	_, err = store.Query(ctx, &storage.KNNQuery{K: 3, Vector: unit(0)})
	assert.ErrorIs(t, err, storage.ErrIndexNotFound)
}

func TestStore_PopulateAndQuery(t *testing.T) {
	ctx := context.Background()
	store := newPopulatedStore(t)

	populated, err := store.IsPopulated(ctx)
	require.NoError(t, err)
	assert.True(t, populated)

	res, err := store.Query(ctx, &storage.KNNQuery{PreFilter: "*", K: 20, Vector: unit(2)})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Candidates)
	require.Len(t, res.Hits, 4)
	assert.Equal(t, "courses:HIST:0220", res.Hits[0].ID)
	assert.InDelta(t, 0, res.Hits[0].Distance, 1e-6)
	for i := 1; i < len(res.Hits); i++ {
		assert.LessOrEqual(t, res.Hits[i-1].Distance, res.Hits[i].Distance)
	}

	res, err = store.Query(ctx, &storage.KNNQuery{K: 2, Vector: unit(2)})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 2)
}

func TestStore_PreFilter(t *testing.T) {
	ctx := context.Background()
	store := newPopulatedStore(t)

	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{"department", "CSCI", []string{"courses:CSCI:0150", "courses:CSCI:1470"}},
		{"case insensitive", "csci", []string{"courses:CSCI:0150", "courses:CSCI:1470"}},
		{"stemmed", "learn", []string{"courses:CSCI:0150", "courses:CSCI:1470"}},
		{"professor", "Bloch", []string{"courses:HIST:0220"}},
		{"all words", "deep networks", []string{"courses:CSCI:1470"}},
		{"no match", "astronomy", nil},
		{"tag", "+writ:true", []string{"courses:HIST:0220"}},
		{"field", "code:0010", []string{"courses:MUSC:0010"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := store.Query(ctx, &storage.KNNQuery{PreFilter: tt.filter, K: 20, Vector: unit(0)})
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, res.IDs())
			assert.Equal(t, len(tt.want), res.Candidates)
		})
	}
}

func TestStore_InvalidFilter(t *testing.T) {
	store := newPopulatedStore(t)
	_, err := store.Query(context.Background(), &storage.KNNQuery{PreFilter: "title:(", K: 5, Vector: unit(0)})
	assert.ErrorIs(t, err, storage.ErrInvalidFilter)
}

func TestStore_QueryValidation(t *testing.T) {
	ctx := context.Background()
	store := newPopulatedStore(t)

	_, err := store.Query(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = store.Query(ctx, &storage.KNNQuery{K: 0, Vector: unit(0)})
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = store.Query(ctx, &storage.KNNQuery{K: 1, Vector: []float32{1, 0}})
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestStore_TiesAreStable(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.CreateIndex(ctx, storage.CourseIndexRequest(testDim)))

	var courses []*core.Course
	for i := range 6 {
		courses = append(courses, &core.Course{
			DepartmentShort: "TIE", Code: fmt.Sprintf("%04d", 9-i), Title: "Same",
			Embedding: unit(1),
		})
	}
	_, err = store.Populate(ctx, storage.NewWriteBatch(courses))
	require.NoError(t, err)

	first, err := store.Query(ctx, &storage.KNNQuery{K: 6, Vector: unit(1)})
	require.NoError(t, err)
	for range 10 {
		again, err := store.Query(ctx, &storage.KNNQuery{K: 6, Vector: unit(1)})
		require.NoError(t, err)
		assert.Equal(t, first.IDs(), again.IDs())
	}
}

func TestStore_PopulateRejectsBadBatch(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.CreateIndex(ctx, storage.CourseIndexRequest(testDim)))

	courses := testCourses()
	courses[2].Embedding = []float32{1, 2}
	_, err = store.Populate(ctx, storage.NewWriteBatch(courses))
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	courses = testCourses()
	courses[1].Embedding = nil
	_, err = store.Populate(ctx, storage.NewWriteBatch(courses))
	assert.ErrorIs(t, err, core.ErrMissingEmbedding)

	_, err = store.Populate(ctx, &storage.WriteBatch{Documents: []storage.Document{{Key: "courses:X:1"}}})
	assert.ErrorIs(t, err, storage.ErrInvalidDocument)
	assert.NotErrorIs(t, err, storage.ErrInvalidQuery)

	courses = testCourses()
	_, err = store.Populate(ctx, &storage.WriteBatch{Documents: []storage.Document{{Key: "_sys:vec:x", Course: courses[0]}}})
	assert.ErrorIs(t, err, storage.ErrInvalidDocument)

	populated, err := store.IsPopulated(ctx)
	require.NoError(t, err)
	assert.False(t, populated, "nothing is written when the batch is rejected")
}

func TestStore_CreateIndexReplacesAndBackfills(t *testing.T) {
	ctx := context.Background()
	store := newPopulatedStore(t)

	require.NoError(t, store.CreateIndex(ctx, storage.CourseIndexRequest(testDim)))

	res, err := store.Query(ctx, &storage.KNNQuery{K: 20, Vector: unit(0)})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 4)

	// Documents of the wrong width are not indexed.
	require.NoError(t, store.CreateIndex(ctx, storage.CourseIndexRequest(8)))
	res, err = store.Query(ctx, &storage.KNNQuery{K: 20, Vector: make([]float32, 8)})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestStore_CreateIndexRejectsReservedPrefix(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	req := storage.CourseIndexRequest(testDim)
	req.Prefix = "_sys:x"
	assert.ErrorIs(t, store.CreateIndex(context.Background(), req), storage.ErrInvalidSchema)
}

func TestStore_GetDocuments(t *testing.T) {
	ctx := context.Background()
	store := newPopulatedStore(t)

	docs, err := store.GetDocuments(ctx, []string{"courses:MUSC:0010", "courses:NOPE:0000", "courses:CSCI:0150"})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "Music Theory", docs[0].Title)
	assert.True(t, docs[0].Fys)
	assert.Nil(t, docs[1])
	assert.Equal(t, "Introduction to Programming", docs[2].Title)
	assert.Equal(t, unit(0), docs[2].Embedding)
}

func TestStore_ReopenRebuildsIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := OpenStore(dir, WithPoolSize(2))
	require.NoError(t, err)
	require.NoError(t, store.CreateIndex(ctx, storage.CourseIndexRequest(testDim)))
	_, err = store.Populate(ctx, storage.NewWriteBatch(testCourses()))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = OpenStore(dir)
	require.NoError(t, err)
	defer store.Close()

	populated, err := store.IsPopulated(ctx)
	require.NoError(t, err)
	assert.True(t, populated)

	res, err := store.Query(ctx, &storage.KNNQuery{PreFilter: "Bloch", K: 5, Vector: unit(2)})
	require.NoError(t, err)
	assert.Equal(t, []string{"courses:HIST:0220"}, res.IDs())
}

func TestStore_Closed(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Ping(ctx), storage.ErrStorageClosed)
	_, err = store.IsPopulated(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	_, err = store.Query(ctx, &storage.KNNQuery{K: 1, Vector: unit(0)})
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestStore_CancelledContext(t *testing.T) {
	store := newPopulatedStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Query(ctx, &storage.KNNQuery{K: 1, Vector: unit(0)})
	assert.ErrorIs(t, err, context.Canceled)
}

func punctuatedCourses() []*core.Course {
	titles := []string{
		"Computing Foundations: Data",
		"Modern Poetry - Special Topics",
		"Women's History",
		"What is Art?",
		"Intro to Software Engineering (Part 1)",
		"Theory/Practice of Design",
		"Deep Learning",
	}
	courses := make([]*core.Course, len(titles))
	for i, title := range titles {
		courses[i] = &core.Course{
			DepartmentShort: "TEST",
			Code:            fmt.Sprintf("%04d", i),
			Title:           title,
			Embedding:       unit(i),
		}
	}
	return courses
}

func TestStore_ExactTitleFilter(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	courses := punctuatedCourses()
	require.NoError(t, store.CreateIndex(ctx, storage.CourseIndexRequest(testDim)))
	_, err = store.Populate(ctx, storage.NewWriteBatch(courses))
	require.NoError(t, err)

	for _, course := range courses {
		t.Run(course.Title, func(t *testing.T) {
			res, err := store.Query(ctx, &storage.KNNQuery{PreFilter: course.Title, K: 20, Vector: unit(0)})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.Candidates, 1)
			assert.Contains(t, res.IDs(), storage.DocumentKey(course))
		})
	}
}

func TestStore_IsPopulatedCountsAnyDocument(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.CreateIndex(ctx, storage.CourseIndexRequest(testDim)))
	populated, err := store.IsPopulated(ctx)
	require.NoError(t, err)
	assert.False(t, populated, "an index definition alone is not data")

	course := testCourses()[0]
	_, err = store.Populate(ctx, &storage.WriteBatch{Documents: []storage.Document{{Key: "archive:CSCI:0150", Course: course}}})
	require.NoError(t, err)

	populated, err = store.IsPopulated(ctx)
	require.NoError(t, err)
	assert.True(t, populated)
}
