package badger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/coursesearch/storage"
)

var errStopScan = errors.New("stop scan")

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// Ensure directory exists
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default().With("component", "badger")}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: slog.Default(),
	}, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// Update executes fn within a read-write transaction and commits it when fn
// succeeds.
func (b *Backend) Update(fn func(tx *badger.Txn) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Set writes a single key.
func (b *Backend) Set(key, value []byte) error {
	return b.Update(func(tx *badger.Txn) error {
		return tx.Set(key, value)
	})
}

// NewWriteBatch starts a batched write. The caller must Flush or Cancel it.
func (b *Backend) NewWriteBatch() *badger.WriteBatch {
	return b.db.NewWriteBatch()
}

// DropAll removes every key from the database.
func (b *Backend) DropAll() error {
	return b.db.DropAll()
}

// DeletePrefix removes every key starting with prefix.
func (b *Backend) DeletePrefix(prefix []byte) error {
	return b.db.DropPrefix(prefix)
}

// ScanPrefix calls fn with every key under prefix, in key order, and a copy
// of its value. When keysOnly is set, fn receives a nil value. Returning
// errStopScan from fn ends the scan without an error.
func (b *Backend) ScanPrefix(prefix []byte, keysOnly bool, fn func(key, value []byte) error) error {
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = !keysOnly
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			key := item.KeyCopy(nil)

			var value []byte
			if !keysOnly {
				var err error
				value, err = item.ValueCopy(nil)
				if err != nil {
					return err
				}
			}
			if err := fn(key, value); err != nil {
				return err
			}
		}
		return nil
	}, false)
	if errors.Is(err, errStopScan) {
		return nil
	}
	return err
}

// GetValues reads keys in one read transaction. Slot i of the result holds
// the value of keys[i], or nil when the key does not exist.
func (b *Backend) GetValues(keys [][]byte) ([][]byte, error) {
	values := make([][]byte, len(keys))
	err := b.WithTx(func(tx *badger.Txn) error {
		for i, key := range keys {
			item, err := tx.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			values[i], err = item.ValueCopy(nil)
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return values, nil
}

// Ping runs an empty read transaction.
func (b *Backend) Ping() error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	return b.db.View(func(tx *badger.Txn) error {
		return nil
	})
}
