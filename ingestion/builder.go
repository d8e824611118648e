package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/coursesearch/ai"
	"github.com/poiesic/coursesearch/catalog"
	"github.com/poiesic/coursesearch/core"
)

// FingerprintPolicy decides whether the embedded snapshot must match the
// raw snapshot it claims to be built from.
type FingerprintPolicy int

const (
	// FingerprintIgnore trusts any readable embedded snapshot. A sidecar
	// fingerprint that disagrees with the raw snapshot, or cannot be read,
	// is only logged.
	FingerprintIgnore FingerprintPolicy = iota
	// FingerprintEnforce rebuilds the embedded snapshot when its sidecar
	// fingerprint is missing or disagrees with the raw snapshot.
	FingerprintEnforce
)

// ParseFingerprintPolicy maps "ignore" and "enforce" to a policy.
func ParseFingerprintPolicy(s string) (FingerprintPolicy, error) {
	switch s {
	case "", "ignore":
		return FingerprintIgnore, nil
	case "enforce":
		return FingerprintEnforce, nil
	default:
		return FingerprintIgnore, fmt.Errorf("unknown fingerprint policy %q", s)
	}
}

// Builder produces the embedded catalog, reusing the embedded snapshot on
// disk when there is one.
type Builder struct {
	embedder    ai.Embedder
	dimensions  int
	policy      FingerprintPolicy
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithDimensions sets the vector width every embedding must have.
// Default is core.DefaultDimensions.
func WithDimensions(dim int) BuilderOption {
	return func(b *Builder) {
		b.dimensions = dim
	}
}

// WithFingerprintPolicy sets how the sidecar fingerprint is checked.
// Default is FingerprintIgnore.
func WithFingerprintPolicy(policy FingerprintPolicy) BuilderOption {
	return func(b *Builder) {
		b.policy = policy
	}
}

// WithEmbedRetry retries a failed batch embedding call up to maxAttempts
// times with exponential backoff. Default is a single attempt.
func WithEmbedRetry(maxAttempts int, baseDelay time.Duration) BuilderOption {
	return func(b *Builder) {
		b.maxAttempts = maxAttempts
		b.retryDelay = baseDelay
	}
}

// WithBuilderLogger sets a custom logger.
// Default is slog.Default().
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates a Builder that embeds with embedder.
func NewBuilder(embedder ai.Embedder, opts ...BuilderOption) (*Builder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	b := &Builder{
		embedder:    embedder,
		dimensions:  core.DefaultDimensions,
		policy:      FingerprintIgnore,
		maxAttempts: 1,
		retryDelay:  time.Second,
		logger:      slog.Default().With("component", "builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.dimensions < 1 {
		return nil, fmt.Errorf("%w: dimensions must be positive", core.ErrDimensionMismatch)
	}
	if b.maxAttempts < 1 {
		return nil, ErrInvalidMaxAttempts
	}
	return b, nil
}

// Obtain returns the embedded catalog. When the snapshot at embeddedPath
// parses and every entry carries a vector of the right width it is
// returned as is, without calling the embedder. Otherwise the raw
// snapshot is embedded in one batch, written to embeddedPath and returned.
// The raw snapshot is never modified.
func (b *Builder) Obtain(ctx context.Context, rawPath, embeddedPath string) ([]*core.Course, error) {
	courses, err := b.loadEmbedded(rawPath, embeddedPath)
	if err == nil {
		b.logger.Info("using embedded snapshot", "path", embeddedPath, "courses", len(courses))
		return courses, nil
	}

	b.logger.Info("embedded snapshot unavailable, rebuilding", "path", embeddedPath, "reason", err)
	return b.Rebuild(ctx, rawPath, embeddedPath)
}

// Rebuild embeds the raw snapshot unconditionally and writes the embedded
// snapshot. Nothing is written unless the whole batch succeeded.
func (b *Builder) Rebuild(ctx context.Context, rawPath, embeddedPath string) ([]*core.Course, error) {
	raw, err := catalog.ReadSnapshot(rawPath)
	if err != nil {
		return nil, core.ProcessFatal("read raw snapshot", err)
	}

	texts := make([]string, len(raw.Courses))
	for i, course := range raw.Courses {
		texts[i] = course.EmbeddingText()
	}

	start := time.Now()
	var vectors [][]float32
	err = RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = b.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, b.maxAttempts, b.retryDelay)
	if err != nil {
		return nil, core.ProcessFatal("embed catalog", err)
	}
	if err := ai.CheckVectors(vectors, len(texts), b.dimensions); err != nil {
		return nil, core.ProcessFatal("embed catalog", err)
	}
	b.logger.Info("catalog embedded", "courses", len(texts), "elapsed", time.Since(start))

	embedded := make([]*core.Course, len(raw.Courses))
	for i, course := range raw.Courses {
		entry := *course
		entry.Embedding = vectors[i]
		embedded[i] = &entry
	}

	if err := catalog.WriteSnapshot(embeddedPath, embedded); err != nil {
		return nil, core.ProcessFatal("write embedded snapshot", err)
	}
	if err := catalog.WriteFingerprint(embeddedPath, raw.Fingerprint); err != nil {
		return nil, core.ProcessFatal("write fingerprint", err)
	}
	b.logger.Info("embedded snapshot written", "path", embeddedPath)

	return embedded, nil
}

// loadEmbedded reads the embedded snapshot and checks it is usable.
func (b *Builder) loadEmbedded(rawPath, embeddedPath string) ([]*core.Course, error) {
	snap, err := catalog.ReadSnapshot(embeddedPath)
	if err != nil {
		return nil, err
	}
	for _, course := range snap.Courses {
		if err := core.ValidateEmbedding(course, b.dimensions); err != nil {
			return nil, err
		}
	}
	if err := b.checkFingerprint(rawPath, embeddedPath); err != nil {
		return nil, err
	}
	return snap.Courses, nil
}

func (b *Builder) checkFingerprint(rawPath, embeddedPath string) error {
	stored, err := catalog.ReadFingerprint(embeddedPath)
	if err != nil {
		if b.policy == FingerprintEnforce {
			return err
		}
		b.logger.Warn("fingerprint unreadable, keeping embedded snapshot",
			"path", embeddedPath, "err", err)
		return nil
	}
	if stored == "" {
		if b.policy == FingerprintEnforce {
			return fmt.Errorf("%w: no fingerprint", ErrStaleSnapshot)
		}
		return nil
	}

	data, err := os.ReadFile(rawPath)
	if err != nil {
		if b.policy == FingerprintEnforce {
			return fmt.Errorf("%w: %w", catalog.ErrSnapshotUnreadable, err)
		}
		return nil
	}
	if current := core.Fingerprint(data); current != stored {
		if b.policy == FingerprintEnforce {
			return fmt.Errorf("%w: fingerprint %s, raw snapshot is %s", ErrStaleSnapshot, stored, current)
		}
		b.logger.Warn("embedded snapshot was built from a different raw snapshot",
			"path", embeddedPath, "stored", stored, "current", current)
	}
	return nil
}
