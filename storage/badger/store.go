package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/coursesearch/core"
	"github.com/poiesic/coursesearch/storage"
)

// Store is a storage.Index kept in BadgerDB. Documents, packed vectors and
// index definitions are persisted; the searchable part of every index (a
// bleve text index and a flat vector table) lives in memory and is rebuilt
// from the stored documents when the store is opened.
type Store struct {
	backend *Backend
	pool    *ants.Pool
	logger  *slog.Logger

	mu      sync.RWMutex
	indexes map[string]*vectorIndex
}

var _ storage.Index = (*Store)(nil)

// vectorIndex is the in-memory state of one index definition.
type vectorIndex struct {
	def  *storage.CreateIndexRequest
	dim  int
	text *textIndex
	flat *flatIndex
}

// encodedDoc is a document ready to be written and indexed.
type encodedDoc struct {
	key    string
	body   []byte
	vector []float32
	fields map[string]any
}

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithPoolSize sets the number of workers encoding and decoding documents.
func WithPoolSize(size int) Option {
	return func(s *Store) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// OpenStore opens a store in the BadgerDB directory at path. An empty path
// opens an in-memory store.
func OpenStore(path string, opts ...Option) (*Store, error) {
	backend, err := OpenBackend(path, path == "")
	if err != nil {
		return nil, err
	}
	store, err := NewStore(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return store, nil
}

// NewStore creates a store on an open backend and rebuilds every persisted
// index. The store takes ownership of the backend.
func NewStore(backend *Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}

	poolSize := runtime.NumCPU()
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Store{
		backend: backend,
		pool:    pool,
		logger:  slog.Default().With("component", "vector-store"),
		indexes: make(map[string]*vectorIndex),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.pool.Release()
			return nil, err
		}
	}

	if err := s.loadIndexes(); err != nil {
		s.closeIndexes()
		s.pool.Release()
		return nil, err
	}

	return s, nil
}

// Ping implements storage.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.backend.Ping()
}

// Reset implements storage.IndexManager.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeIndexes()
	s.indexes = make(map[string]*vectorIndex)

	if err := s.backend.DropAll(); err != nil {
		return fmt.Errorf("failed to drop data: %w", err)
	}
	s.logger.Info("store reset")
	return nil
}

// CreateIndex implements storage.IndexManager.
func (s *Store) CreateIndex(ctx context.Context, req *storage.CreateIndexRequest) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if strings.HasPrefix(req.Prefix, sysPrefix) || strings.HasPrefix(sysPrefix, req.Prefix) {
		return fmt.Errorf("%w: prefix %q overlaps reserved keys", storage.ErrInvalidSchema, req.Prefix)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.indexes[req.Name]; ok {
		s.logger.Info("dropping existing index", "index", req.Name)
		if err := existing.text.close(); err != nil {
			s.logger.Warn("error closing text index", "index", req.Name, "err", err)
		}
		delete(s.indexes, req.Name)
	}

	data, err := storage.MarshalIndexDefinition(req)
	if err != nil {
		return err
	}
	if err := s.backend.Set(makeIndexDefKey(req.Name), data); err != nil {
		return fmt.Errorf("failed to store index definition: %w", err)
	}

	idx, err := s.buildIndex(req)
	if err != nil {
		return err
	}
	s.indexes[req.Name] = idx

	s.logger.Info("index created", "index", req.Name, "prefix", req.Prefix,
		"dim", idx.dim, "documents", idx.flat.len())
	return nil
}

// Populate implements storage.IndexManager.
func (s *Store) Populate(ctx context.Context, batch *storage.WriteBatch) (*storage.WriteResult, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	if batch == nil || len(batch.Documents) == 0 {
		return &storage.WriteResult{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateBatch(batch); err != nil {
		return nil, err
	}

	docs, err := s.encodeAll(batch.Documents)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wb := s.backend.NewWriteBatch()
	defer wb.Cancel()
	for _, doc := range docs {
		if err := wb.Set([]byte(doc.key), doc.body); err != nil {
			return nil, err
		}
		if err := wb.Set(makeVectorKey(doc.key), storage.EncodeVector(doc.vector)); err != nil {
			return nil, err
		}
	}
	if err := wb.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write documents: %w", err)
	}

	for _, idx := range s.indexes {
		if err := idx.add(docs); err != nil {
			return nil, fmt.Errorf("failed to index documents in %s: %w", idx.def.Name, err)
		}
	}

	s.logger.Info("documents written", "count", len(docs))
	return &storage.WriteResult{Written: len(docs)}, nil
}

// IsPopulated implements storage.IndexManager.
func (s *Store) IsPopulated(ctx context.Context) (bool, error) {
	if err := s.checkOpen(ctx); err != nil {
		return false, err
	}

	found := false
	err := s.backend.ScanPrefix(nil, true, func(key, _ []byte) error {
		if isSystemKey(key) {
			return nil
		}
		found = true
		return errStopScan
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Query implements storage.QueryStore.
func (s *Store) Query(ctx context.Context, q *storage.KNNQuery) (*storage.KNNResult, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("%w: query is nil", storage.ErrInvalidQuery)
	}
	if q.K < 1 {
		return nil, fmt.Errorf("%w: K must be positive, got %d", storage.ErrInvalidQuery, q.K)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.indexes[q.IndexName()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrIndexNotFound, q.IndexName())
	}
	if len(q.Vector) != idx.dim {
		return nil, fmt.Errorf("%w: %w: expected %d, got %d",
			storage.ErrInvalidQuery, core.ErrDimensionMismatch, idx.dim, len(q.Vector))
	}

	var allow map[string]struct{}
	candidates := idx.flat.len()
	if !isMatchAll(q.PreFilter) {
		var err error
		allow, err = idx.text.matching(q.PreFilter)
		if err != nil {
			return nil, err
		}
		candidates = len(allow)
	}

	hits := idx.flat.search(q.Vector, q.K, allow, q.Order)
	s.logger.Debug("knn query", "index", idx.def.Name, "filter", q.PreFilter,
		"candidates", candidates, "hits", len(hits))

	return &storage.KNNResult{
		Candidates: candidates,
		Hits:       hits,
	}, nil
}

// GetDocuments implements storage.QueryStore.
func (s *Store) GetDocuments(ctx context.Context, ids []string) ([]*core.Course, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	keys := make([][]byte, len(ids))
	for i, id := range ids {
		keys[i] = []byte(id)
	}
	values, err := s.backend.GetValues(keys)
	if err != nil {
		return nil, err
	}

	courses := make([]*core.Course, len(ids))
	err = s.parallel(len(values), func(i int) error {
		if values[i] == nil {
			return nil
		}
		course, err := storage.UnmarshalCourse(values[i])
		if err != nil {
			return fmt.Errorf("%s: %w", ids[i], err)
		}
		courses[i] = course
		return nil
	})
	if err != nil {
		return nil, err
	}
	return courses, nil
}

// Close implements storage.Index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend.IsClosed() {
		return nil
	}
	s.closeIndexes()
	s.indexes = make(map[string]*vectorIndex)
	s.pool.Release()
	return s.backend.Close()
}

func (s *Store) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// validateBatch rejects the whole batch before anything is written.
// Must be called with the lock held.
func (s *Store) validateBatch(batch *storage.WriteBatch) error {
	for i, doc := range batch.Documents {
		if doc.Course == nil {
			return fmt.Errorf("%w: document %d has no body", storage.ErrInvalidDocument, i)
		}
		if doc.Key == "" || isSystemKey([]byte(doc.Key)) {
			return fmt.Errorf("%w: document %d has invalid key %q", storage.ErrInvalidDocument, i, doc.Key)
		}
		if !doc.Course.HasEmbedding() {
			return fmt.Errorf("%w: %s", core.ErrMissingEmbedding, doc.Key)
		}
		for _, idx := range s.indexes {
			if !strings.HasPrefix(doc.Key, idx.def.Prefix) {
				continue
			}
			if err := core.ValidateEmbedding(doc.Course, idx.dim); err != nil {
				return fmt.Errorf("index %s: %w", idx.def.Name, err)
			}
		}
	}
	return nil
}

// encodeAll serializes documents on the worker pool. The result keeps the
// order of docs.
func (s *Store) encodeAll(docs []storage.Document) ([]encodedDoc, error) {
	out := make([]encodedDoc, len(docs))
	err := s.parallel(len(docs), func(i int) error {
		body, err := storage.MarshalCourse(docs[i].Course)
		if err != nil {
			return fmt.Errorf("%s: %w", docs[i].Key, err)
		}
		fields, err := decodeFields(body)
		if err != nil {
			return fmt.Errorf("%s: %w", docs[i].Key, err)
		}
		out[i] = encodedDoc{
			key:    docs[i].Key,
			body:   body,
			vector: docs[i].Course.Embedding,
			fields: fields,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// parallel runs fn(0..n-1) on the worker pool and waits for all of them.
func (s *Store) parallel(n int, fn func(i int) error) error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			errs[i] = fn(i)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return err
		}
	}
	wg.Wait()
	return errors.Join(errs...)
}

// loadIndexes rebuilds every persisted index definition.
func (s *Store) loadIndexes() error {
	var defs []*storage.CreateIndexRequest
	err := s.backend.ScanPrefix([]byte(indexDefPrefix), false, func(_, value []byte) error {
		def, err := storage.UnmarshalIndexDefinition(value)
		if err != nil {
			return err
		}
		defs = append(defs, def)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read index definitions: %w", err)
	}

	for _, def := range defs {
		idx, err := s.buildIndex(def)
		if err != nil {
			return fmt.Errorf("failed to rebuild index %s: %w", def.Name, err)
		}
		s.indexes[def.Name] = idx
		s.logger.Info("index loaded", "index", def.Name, "documents", idx.flat.len())
	}
	return nil
}

// buildIndex creates the in-memory state for def and indexes every stored
// document under its prefix. Documents without a vector of the right width
// are skipped.
func (s *Store) buildIndex(def *storage.CreateIndexRequest) (*vectorIndex, error) {
	text, err := newTextIndex(def)
	if err != nil {
		return nil, err
	}
	idx := &vectorIndex{
		def:  def,
		dim:  def.VectorField().Vector.Dim,
		text: text,
		flat: newFlatIndex(def.VectorField().Vector.Dim),
	}

	vectors := make(map[string][]float32)
	err = s.backend.ScanPrefix([]byte(vectorPrefix+def.Prefix), false, func(key, value []byte) error {
		v, err := storage.DecodeVector(value)
		if err != nil {
			return err
		}
		vectors[strings.TrimPrefix(string(key), vectorPrefix)] = v
		return nil
	})
	if err != nil {
		text.close()
		return nil, err
	}

	var docs []encodedDoc
	skipped := 0
	err = s.backend.ScanPrefix([]byte(def.Prefix), false, func(key, value []byte) error {
		v, ok := vectors[string(key)]
		if !ok || len(v) != idx.dim {
			skipped++
			return nil
		}
		fields, err := decodeFields(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		docs = append(docs, encodedDoc{key: string(key), body: value, vector: v, fields: fields})
		return nil
	})
	if err != nil {
		text.close()
		return nil, err
	}
	if skipped > 0 {
		s.logger.Warn("documents not indexed", "index", def.Name, "count", skipped)
	}

	if err := idx.add(docs); err != nil {
		text.close()
		return nil, err
	}
	return idx, nil
}

// closeIndexes closes every text index. Must be called with the lock held.
func (s *Store) closeIndexes() {
	for name, idx := range s.indexes {
		if err := idx.text.close(); err != nil {
			s.logger.Warn("error closing text index", "index", name, "err", err)
		}
	}
}

// add indexes the docs under the index prefix, preserving their order in
// the vector table.
func (v *vectorIndex) add(docs []encodedDoc) error {
	fields := make(map[string]map[string]any)
	for _, doc := range docs {
		if !strings.HasPrefix(doc.key, v.def.Prefix) || len(doc.vector) != v.dim {
			continue
		}
		fields[doc.key] = doc.fields
		v.flat.upsert(doc.key, doc.vector)
	}
	if len(fields) == 0 {
		return nil
	}
	return v.text.indexBatch(fields)
}

func decodeFields(body []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return fields, nil
}
