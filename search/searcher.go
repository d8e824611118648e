package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/coursesearch/ai"
	"github.com/poiesic/coursesearch/core"
	"github.com/poiesic/coursesearch/storage"
)

// MaxResults caps the number of results of a search.
const MaxResults = 20

// Searcher answers free-text queries with the nearest catalog entries.
// It is safe for concurrent use.
type Searcher struct {
	store          storage.QueryStore
	embedder       ai.Embedder
	maxQueryLength int
	logger         *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMaxQueryLength sets how many characters of a query are kept.
// Default is MaxQueryLength.
func WithMaxQueryLength(n int) Option {
	return func(s *Searcher) error {
		if n < 1 {
			return fmt.Errorf("max query length must be positive, got %d", n)
		}
		s.maxQueryLength = n
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.QueryStore, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		store:          store,
		embedder:       provider.Embedder(),
		maxQueryLength: MaxQueryLength,
		logger:         slog.Default().With("component", "searcher"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// ClampLimit bounds a requested result count to [1, MaxResults]. A
// non-positive limit means MaxResults.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxResults {
		return MaxResults
	}
	return limit
}

// Search returns up to limit catalog entries nearest to query, closest
// first.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]*core.Course, error) {
	return s.SearchWithMonitor(ctx, query, limit, nil)
}

// SearchWithMonitor is Search with a monitor receiving callbacks at each
// stage of the search.
//
// The query is truncated, then its first quoted span becomes the
// pre-filter. The whole truncated query is embedded and the store ranks
// the documents passing the pre-filter by distance. Bodies are fetched
// afterwards and keep the rank order of their ids.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, limit int, monitor SearchMonitor) ([]*core.Course, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	start := time.Now()

	monitor.Start(query)

	query = Truncate(query, s.maxQueryLength)
	if strings.TrimSpace(query) == "" {
		return nil, core.RequestFatal("search", ErrEmptyQuery)
	}
	filter := preFilter(query)
	k := ClampLimit(limit)
	monitor.AfterQueryPreparation(query, filter, k)

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, core.RequestFatal("embed query", fmt.Errorf("%w: %w", ErrEmbeddingFailed, err))
	}
	monitor.AfterQueryEmbedding(vector)

	result, err := s.store.Query(ctx, &storage.KNNQuery{
		PreFilter: filter,
		K:         k,
		Vector:    vector,
		Order:     storage.SortAscending,
	})
	if err != nil {
		s.logger.Error("error querying index", "filter", filter, "err", err)
		return nil, scoped("query index", err)
	}
	monitor.AfterKNNSearch(result)

	results := make([]*core.Course, 0, len(result.Hits))
	if len(result.Hits) > 0 {
		docs, err := s.store.GetDocuments(ctx, result.IDs())
		if err != nil {
			s.logger.Error("error fetching documents", "err", err)
			return nil, scoped("fetch documents", err)
		}
		monitor.AfterDocumentRetrieval(docs)

		// Slot i of docs belongs to hit i.
		for i, doc := range docs {
			if doc == nil {
				s.logger.Warn("ranked document is missing", "id", result.Hits[i].ID)
				continue
			}
			results = append(results, doc)
		}
	}

	monitor.Finish(results)
	s.logger.Debug("search complete", "query", query, "filter", filter,
		"candidates", result.Candidates, "results", len(results), "elapsed", time.Since(start))
	return results, nil
}

// scoped tags a store error. A closed store takes the process down with
// it; anything else only fails the request.
func scoped(op string, err error) error {
	if errors.Is(err, storage.ErrStorageClosed) {
		return core.ProcessFatal(op, err)
	}
	return core.RequestFatal(op, err)
}
