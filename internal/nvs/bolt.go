package nvs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bolt stores a namespace as a bucket in a bbolt database file.
type Bolt struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBolt opens (or creates) path and ensures the namespace bucket exists.
func OpenBolt(path, namespace string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}

	b := &Bolt{db: db, bucket: []byte(namespace)}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(b.bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create namespace %s: %w", namespace, err)
	}

	return b, nil
}

func (b *Bolt) get(key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(b.bucket)
		if bkt == nil {
			return nil
		}
		if v := bkt.Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

// GetString implements Namespace.
func (b *Bolt) GetString(key string) (string, bool, error) {
	v, err := b.get(key)
	if err != nil || v == nil {
		return "", false, err
	}
	return string(v), true, nil
}

// GetUint32 implements Namespace.
func (b *Bolt) GetUint32(key string) (uint32, bool, error) {
	v, err := b.get(key)
	if err != nil || v == nil {
		return 0, false, err
	}
	n, err := decodeUint32(key, v)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// Update runs fn in one bbolt write transaction.
func (b *Bolt) Update(fn func(w Writer) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(b.bucket)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fn(boltWriter{bkt})
	})
}

// Clear deletes and recreates the namespace bucket.
func (b *Bolt) Clear() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(b.bucket) != nil {
			if err := tx.DeleteBucket(b.bucket); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(b.bucket)
		return err
	})
}

// Keys lists the keys currently stored, for diagnostics.
func (b *Bolt) Keys() ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(b.bucket)
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Close closes the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

type boltWriter struct {
	bkt *bolt.Bucket
}

func (w boltWriter) PutString(key, value string) error {
	return w.bkt.Put([]byte(key), []byte(value))
}

func (w boltWriter) PutUint32(key string, value uint32) error {
	return w.bkt.Put([]byte(key), encodeUint32(value))
}

func (w boltWriter) Delete(key string) error {
	return w.bkt.Delete([]byte(key))
}
