package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltStore keeps each collection in its own bucket, keyed by document id
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) a bbolt database file
func OpenBolt(path string) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// NewBoltStore wraps an already opened database
func NewBoltStore(db *bolt.DB) *BoltStore {
	return &BoltStore{db: db}
}

// Collection returns the named collection. The bucket is created on first write.
func (s *BoltStore) Collection(name string) Collection {
	return &boltCollection{db: s.db, bucket: []byte(name)}
}

// Ping checks the database is open
func (s *BoltStore) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error { return nil })
}

// Close closes the database
func (s *BoltStore) Close(ctx context.Context) error {
	return s.db.Close()
}

type boltCollection struct {
	db     *bolt.DB
	bucket []byte
}

func (c *boltCollection) Insert(ctx context.Context, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(c.bucket)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", c.bucket, err)
		}
		if b.Get([]byte(id)) != nil {
			return fmt.Errorf("document %s already exists in %s", id, c.bucket)
		}
		return b.Put([]byte(id), data)
	})
}

func (c *boltCollection) Get(ctx context.Context, id string, out any) error {
	return c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return ErrNotFound
		}
		data := b.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to unmarshal document: %w", err)
		}
		return nil
	})
}

func (c *boltCollection) FindOne(ctx context.Context, filter Filter, out any) error {
	match, err := compileFilter(filter)
	if err != nil {
		return err
	}

	return c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return ErrNotFound
		}
		cur := b.Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			if !match(v) {
				continue
			}
			if err := json.Unmarshal(v, out); err != nil {
				return fmt.Errorf("failed to unmarshal document: %w", err)
			}
			return nil
		}
		return ErrNotFound
	})
}

func (c *boltCollection) Find(ctx context.Context, filter Filter, opts FindOptions, out any) error {
	match, err := compileFilter(filter)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteByte('[')

	err = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return nil
		}

		skipped := 0
		count := 0
		cur := b.Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !match(v) {
				continue
			}
			if skipped < opts.Skip {
				skipped++
				continue
			}
			if opts.Limit > 0 && count >= opts.Limit {
				break
			}
			if count > 0 {
				buf.WriteByte(',')
			}
			buf.Write(v)
			count++
		}
		return nil
	})
	if err != nil {
		return err
	}

	buf.WriteByte(']')
	if err := json.Unmarshal(buf.Bytes(), out); err != nil {
		return fmt.Errorf("failed to unmarshal documents: %w", err)
	}
	return nil
}

func (c *boltCollection) Replace(ctx context.Context, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil || b.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return b.Put([]byte(id), data)
	})
}

func (c *boltCollection) Delete(ctx context.Context, id string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil || b.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

func (c *boltCollection) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	match, err := compileFilter(filter)
	if err != nil {
		return 0, err
	}

	var deleted int64
	err = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return nil
		}

		// Collect first, deleting under a live cursor skips entries
		var keys [][]byte
		cur := b.Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			if match(v) {
				keys = append(keys, append([]byte(nil), k...))
			}
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

func (c *boltCollection) Count(ctx context.Context, filter Filter) (int64, error) {
	match, err := compileFilter(filter)
	if err != nil {
		return 0, err
	}

	var n int64
	err = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return nil
		}
		if len(filter) == 0 {
			n = int64(b.Stats().KeyN)
			return nil
		}
		cur := b.Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			if match(v) {
				n++
			}
		}
		return nil
	})
	return n, err
}

// compileFilter returns a predicate over stored JSON documents. Values are
// compared in their JSON encoding.
func compileFilter(filter Filter) (func([]byte) bool, error) {
	if len(filter) == 0 {
		return func([]byte) bool { return true }, nil
	}

	want := make(map[string][]byte, len(filter))
	for field, value := range filter {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode filter field %s: %w", field, err)
		}
		want[field] = encoded
	}

	return func(data []byte) bool {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			return false
		}
		for field, encoded := range want {
			got, ok := doc[field]
			if !ok || !bytes.Equal(got, encoded) {
				return false
			}
		}
		return true
	}, nil
}
