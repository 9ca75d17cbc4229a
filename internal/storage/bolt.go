package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

// BoltStore persists records in a bbolt database, one bucket per namespace.
// Each Update is a single bbolt read-write transaction.
type BoltStore struct {
	db *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allNamespaces {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&recordTx{kv: boltKV{tx: tx}})
	})
}

func (s *BoltStore) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		return fn(&recordTx{kv: boltKV{tx: tx}})
	})
}

func (s *BoltStore) Close() error { return s.db.Close() }

type boltKV struct {
	tx *bbolt.Tx
}

func (b boltKV) bucket(name string) (*bbolt.Bucket, error) {
	bucket := b.tx.Bucket([]byte(name))
	if bucket == nil {
		return nil, fmt.Errorf("bucket %q missing", name)
	}
	return bucket, nil
}

func (b boltKV) get(bucket string, key RecordKey) ([]byte, error) {
	bkt, err := b.bucket(bucket)
	if err != nil {
		return nil, err
	}
	return bkt.Get(key[:]), nil
}

func (b boltKV) put(bucket string, key RecordKey, value []byte) error {
	if !b.tx.Writable() {
		return errReadOnly
	}
	bkt, err := b.bucket(bucket)
	if err != nil {
		return err
	}
	return bkt.Put(key[:], value)
}

func (b boltKV) forEach(bucket string, fn func(value []byte) error) error {
	bkt, err := b.bucket(bucket)
	if err != nil {
		return err
	}
	return bkt.ForEach(func(_, v []byte) error {
		return fn(v)
	})
}
