package lscache

import (
	"os"
	"sync"

	"github.com/dgraph-io/badger"
	e "github.com/pkg/errors"
)

// BadgerStore is a Store persisted with badger.
// Listings survive between runs, which matters on login nodes where
// a new process is started for every user command.
type BadgerStore struct {
	mu sync.Mutex
	db *badger.DB
}

// NewBadgerStore opens (or creates) a badger store at `path`.
func NewBadgerStore(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, e.Wrap(err, "failed to create listing cache dir")
	}

	opts := badger.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path

	db, err := badger.Open(opts)
	if err != nil {
		return nil, e.Wrap(err, "failed to open listing cache")
	}

	return &BadgerStore{db: db}, nil
}

// Get returns the value at `key` or ErrNoSuchKey.
func (bs *BadgerStore) Get(key string) ([]byte, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	var data []byte
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return ErrNoSuchKey
		}

		if err != nil {
			return err
		}

		data, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, err
	}

	return data, nil
}

// Put stores `data` at `key`.
func (bs *BadgerStore) Put(key string, data []byte) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (bs *BadgerStore) keysWithPrefix(txn *badger.Txn, prefix string) []string {
	iterOpts := badger.DefaultIteratorOptions
	iterOpts.PrefetchValues = false

	iter := txn.NewIterator(iterOpts)
	defer iter.Close()

	keys := []string{}
	for iter.Seek([]byte(prefix)); iter.ValidForPrefix([]byte(prefix)); iter.Next() {
		keys = append(keys, string(iter.Item().KeyCopy(nil)))
	}

	return keys
}

// Keys returns all keys with `prefix`, sorted lexically.
func (bs *BadgerStore) Keys(prefix string) ([]string, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	var keys []string
	err := bs.db.View(func(txn *badger.Txn) error {
		keys = bs.keysWithPrefix(txn, prefix)
		return nil
	})

	if err != nil {
		return nil, err
	}

	return keys, nil
}

// Invalidate forgets all keys starting with `prefix`.
func (bs *BadgerStore) Invalidate(prefix string) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return bs.db.Update(func(txn *badger.Txn) error {
		for _, key := range bs.keysWithPrefix(txn, prefix) {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}

		return nil
	})
}

// Close closes the underlying badger handle.
func (bs *BadgerStore) Close() error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return bs.db.Close()
}
