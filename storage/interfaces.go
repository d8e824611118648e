package storage

import (
	"context"

	"github.com/poiesic/coursesearch/core"
)

// Pinger reports whether a backing store is ready to serve requests.
type Pinger interface {
	// Ping returns nil when the store is open and answering.
	// Returns ErrStorageClosed after Close.
	Ping(ctx context.Context) error
}

// IndexManager owns the lifecycle of the similarity index. The supported
// sequence is Reset, CreateIndex, Populate.
type IndexManager interface {
	// Reset destroys every stored document and the index definition.
	// Safe to call on an empty store.
	Reset(ctx context.Context) error

	// CreateIndex defines the index described by req, dropping any index of
	// the same name first. Documents already stored under req.Prefix are
	// indexed immediately.
	CreateIndex(ctx context.Context, req *CreateIndexRequest) error

	// Populate writes one document per entry of batch as a single batched
	// write. Every document must carry an embedding of the index dimension;
	// otherwise nothing is written.
	Populate(ctx context.Context, batch *WriteBatch) (*WriteResult, error)

	// IsPopulated reports whether the store holds any document, under any
	// key prefix. Index definitions and vectors do not count.
	IsPopulated(ctx context.Context) (bool, error)
}

// QueryStore answers ranked vector queries and fetches document bodies.
// Implementations must be safe for concurrent use.
type QueryStore interface {
	// Query runs a filtered KNN search and returns identifiers only,
	// ordered by q.Order. Returns ErrIndexNotFound when no index exists.
	Query(ctx context.Context, q *KNNQuery) (*KNNResult, error)

	// GetDocuments fetches the bodies of ids. Slot i of the result belongs
	// to ids[i]; a missing document leaves its slot nil.
	GetDocuments(ctx context.Context, ids []string) ([]*core.Course, error)
}

// Index combines every operation of a vector index backing store.
type Index interface {
	Pinger
	IndexManager
	QueryStore

	// Close closes the storage backend and releases resources.
	Close() error
}
