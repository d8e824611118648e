package coursesearch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/coursesearch/ai"
	"github.com/poiesic/coursesearch/ai/mock"
	"github.com/poiesic/coursesearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, dbPath string) (*Engine, *mock.MockEmbedder) {
	t.Helper()
	m := mock.NewMockEmbedder()
	e, err := NewEngine(context.Background(), dbPath, WithProvider(mock.NewMockProviderWithEmbedder(m)))
	require.NoError(t, err)
	return e, m
}

func TestNewEngine(t *testing.T) {
	t.Run("in memory", func(t *testing.T) {
		e, _ := newTestEngine(t, "")
		defer e.Close()

		assert.NotNil(t, e.Store())
		assert.NotNil(t, e.Provider())
		assert.NoError(t, e.WaitForReady(context.Background(), 3, time.Millisecond))
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		e, err := NewEngine(context.Background(), tmpFile, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, e)
	})

	t.Run("invalid ai config", func(t *testing.T) {
		cfg := ai.NewConfig(ai.WithProvider("gemini"))
		_, err := NewEngine(context.Background(), "", WithAIConfig(cfg))
		assert.Error(t, err)
	})
}

func TestNewProvider_Unsupported(t *testing.T) {
	_, err := NewProvider(context.Background(), ai.NewConfig(ai.WithProvider("cohere")))
	assert.Error(t, err)
}

func TestEngine_IndexAndSearch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	e, m := newTestEngine(t, filepath.Join(dir, "db"))

	courses := []*core.Course{
		{DepartmentShort: "CSCI", Code: "0150", Title: "Introduction to Programming"},
		{DepartmentShort: "HIST", Code: "0220", Title: "Medieval Europe"},
	}
	data, err := json.Marshal(courses)
	require.NoError(t, err)
	raw := filepath.Join(dir, "courses.json")
	require.NoError(t, os.WriteFile(raw, data, 0644))
	embedded := filepath.Join(dir, "embedded_courses.json")

	pipeline, err := e.NewPipeline()
	require.NoError(t, err)
	res, err := pipeline.Run(ctx, raw, embedded, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Courses)
	assert.Equal(t, 1, m.CallCount())

	searcher, err := e.NewSearcher()
	require.NoError(t, err)
	results, err := searcher.Search(ctx, `"Medieval"`, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "0220", results[0].Code)

	require.NoError(t, e.Close())

	// The index survives a restart and no reindex is needed.
	e, m = newTestEngine(t, filepath.Join(dir, "db"))
	defer e.Close()
	pipeline, err = e.NewPipeline()
	require.NoError(t, err)
	res, err = pipeline.Run(ctx, raw, embedded, false)
	require.NoError(t, err)
	assert.False(t, res.Reindexed)
	assert.Zero(t, m.CallCount())
}
