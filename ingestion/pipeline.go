package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/coursesearch/core"
	"github.com/poiesic/coursesearch/storage"
)

// Pipeline runs the indexing path: obtain the embedded catalog, then
// reset, define and populate the store index.
type Pipeline struct {
	store      storage.IndexManager
	builder    *Builder
	dimensions int
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithIndexDimensions sets the vector width of the created index.
// Default is the builder's dimensions.
func WithIndexDimensions(dim int) Option {
	return func(p *Pipeline) {
		p.dimensions = dim
	}
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(store storage.IndexManager, builder *Builder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if builder == nil {
		return nil, ErrBuilderRequired
	}

	p := &Pipeline{
		store:      store,
		builder:    builder,
		dimensions: builder.dimensions,
		logger:     slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Result describes what Run did.
type Result struct {
	// Reindexed is false when the store was already populated and no
	// reindex was forced.
	Reindexed bool
	// Courses is the number of documents written.
	Courses int
	Elapsed time.Duration
}

// Run indexes the catalog when force is set or the store holds no
// documents. Every failure is process-fatal.
func (p *Pipeline) Run(ctx context.Context, rawPath, embeddedPath string, force bool) (*Result, error) {
	start := time.Now()

	if !force {
		populated, err := p.store.IsPopulated(ctx)
		if err != nil {
			return nil, core.ProcessFatal("check store", err)
		}
		if populated {
			p.logger.Info("store already populated, skipping reindex")
			return &Result{}, nil
		}
	}

	courses, err := p.builder.Obtain(ctx, rawPath, embeddedPath)
	if err != nil {
		return nil, err
	}

	written, err := p.Index(ctx, courses)
	if err != nil {
		return nil, err
	}

	res := &Result{Reindexed: true, Courses: written, Elapsed: time.Since(start)}
	p.logger.Info("reindex complete", "courses", res.Courses, "elapsed", res.Elapsed)
	return res, nil
}

// Index rebuilds the store from courses: reset, create the index, then
// write every course in one batch.
func (p *Pipeline) Index(ctx context.Context, courses []*core.Course) (int, error) {
	if err := p.store.Reset(ctx); err != nil {
		return 0, core.ProcessFatal("reset store", err)
	}
	if err := p.store.CreateIndex(ctx, storage.CourseIndexRequest(p.dimensions)); err != nil {
		return 0, core.ProcessFatal("create index", err)
	}
	res, err := p.store.Populate(ctx, storage.NewWriteBatch(courses))
	if err != nil {
		return 0, core.ProcessFatal("populate index", err)
	}
	return res.Written, nil
}
