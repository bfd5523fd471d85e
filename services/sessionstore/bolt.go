package sessionstore

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/tailwebs/classwork/core"
	"github.com/tailwebs/classwork/core/session"
)

var bucket = []byte("session")

// BoltStorage persists Session entries in a single bbolt file, so a Session survives a restart of the CLI.
type BoltStorage struct {
	db *bbolt.DB
}

var _ session.Storage = (*BoltStorage)(nil)

// Open opens (or creates) the storage file at conf.Session.StorePath.
func Open(conf *core.Config) (*BoltStorage, error) {
	path := conf.Session.StorePath
	if path == "" {
		return nil, errors.New("session store path is not configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "creating session store dir")
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening session store %s", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating session bucket")
	}
	return &BoltStorage{db: db}, nil
}

func (s *BoltStorage) Close() error {
	return s.db.Close()
}

func (s *BoltStorage) Get(key string) (string, bool, error) {
	var (
		val string
		ok  bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			val, ok = string(v), true
		}
		return nil
	})
	return val, ok, errors.Wrapf(err, "reading %q", key)
}

func (s *BoltStorage) Set(key, value string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), []byte(value))
	})
	return errors.Wrapf(err, "writing %q", key)
}

func (s *BoltStorage) Remove(keys ...string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "removing session entries")
}
