// Package badger implements an embedded Badger run-record backend for
// hosts without shared storage.
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/davidthor/auractl/pkg/state/backend"
	badgerdb "github.com/dgraph-io/badger/v4"
)

func init() {
	backend.Register("badger", NewBackend)
}

const keyPrefix = "record:"

// Backend stores records as keys in a Badger database.
type Backend struct {
	db *badgerdb.DB
}

// NewBackend opens (creating if needed) a Badger database.
//
// Config keys: path (default ~/.auractl/badger), in_memory ("true" keeps
// everything in memory; used by tests).
func NewBackend(cfg map[string]string) (backend.Backend, error) {
	var opts badgerdb.Options
	if cfg["in_memory"] == "true" {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		dir := cfg["path"]
		if dir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			dir = filepath.Join(homeDir, ".auractl", "badger")
		}
		opts = badgerdb.DefaultOptions(filepath.Clean(dir)).WithValueLogFileSize(1 << 20)
	}
	opts.Logger = nil

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Type() string {
	return "badger"
}

func (b *Backend) Read(ctx context.Context, recordPath string) (io.ReadCloser, error) {
	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key(recordPath))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read record %s: %w", recordPath, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *Backend) Write(ctx context.Context, recordPath string, data io.Reader) error {
	content, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}

	err = b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(key(recordPath), content)
	})
	if err != nil {
		return fmt.Errorf("failed to write record %s: %w", recordPath, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, recordPath string) error {
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(key(recordPath))
	})
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", recordPath, err)
	}
	return nil
}

func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = key(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			paths = append(paths, strings.TrimPrefix(string(it.Item().Key()), keyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", prefix, err)
	}
	return paths, nil
}

func (b *Backend) Exists(ctx context.Context, recordPath string) (bool, error) {
	err := b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key(recordPath))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badgerdb.ErrKeyNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check record %s: %w", recordPath, err)
	}
}

// Close flushes and closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

func key(recordPath string) []byte {
	return []byte(keyPrefix + strings.TrimPrefix(recordPath, "/"))
}

var _ backend.Backend = (*Backend)(nil)
