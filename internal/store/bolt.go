package store

import (
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// Bolt is a Store backed by a bucket of a bbolt database. Multiple Bolt
// instances may share one database file, each owning its own bucket.
// bbolt commits are fsynced, so a completed Write is durable.
type Bolt struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBolt opens (or creates) the database file at path.
func OpenBolt(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "store: open %s", path)
	}
	return db, nil
}

// NewBolt returns a Store over the named bucket, creating it if needed.
func NewBolt(db *bolt.DB, bucket string) (*Bolt, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "store: create bucket %s", bucket)
	}

	return &Bolt{db: db, bucket: []byte(bucket)}, nil
}

func (s *Bolt) Read(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "store: read %s", key)
	}

	return value, value != nil, nil
}

func (s *Bolt) Write(key string, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), value)
	})
	if err != nil {
		return errors.Wrapf(err, "store: write %s", key)
	}

	return nil
}
