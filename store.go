package kvdoc

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"
)

// Store keeps named documents in a Bolt database file, one top-level bucket
// per document. Documents are handed out as MapDocuments over the bucket and
// are only valid inside the Read or Write callback.
type Store struct {
	bdb    *bbolt.DB
	logger *slog.Logger
}

type StoreOptions struct {
	Logger    *slog.Logger
	IsTesting bool
	MmapSize  int
}

func OpenStore(path string, opt StoreOptions) (*Store, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("kvdoc: %w", err)
	}
	logDebug(opt.Logger, "kvdoc: opened store", slog.String("path", path))
	return &Store{bdb: bdb, logger: opt.Logger}, nil
}

func (s *Store) Bolt() *bbolt.DB {
	return s.bdb
}

func (s *Store) Close() error {
	return s.bdb.Close()
}

// Read calls f with the named document in a read-only transaction. Writes
// through the document fail with ErrUnsupported. A missing document is
// reported as ErrKeyNotFound.
func (s *Store) Read(name string, f func(doc *MapDocument) error) error {
	return s.bdb.View(func(btx *bbolt.Tx) error {
		b := btx.Bucket([]byte(name))
		if b == nil {
			return fmt.Errorf("document %q: %w", name, ErrKeyNotFound)
		}
		return f(NewBoltDocument(b).WithLogger(s.logger))
	})
}

// Write calls f with the named document in a read-write transaction,
// creating the document if needed. The transaction commits if f returns nil.
func (s *Store) Write(name string, f func(doc *MapDocument) error) error {
	return s.bdb.Update(func(btx *bbolt.Tx) error {
		b, err := btx.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return fmt.Errorf("document %q: %w", name, err)
		}
		return f(NewBoltDocument(b).WithLogger(s.logger))
	})
}

// Load returns a detached in-memory copy of the named document.
func (s *Store) Load(name string) (*List, error) {
	var l *List
	err := s.Read(name, func(doc *MapDocument) error {
		l = Copy(doc)
		return nil
	})
	return l, err
}

// Save replaces the named document's contents with those of doc.
func (s *Store) Save(name string, doc Document) error {
	if isNil(doc) {
		return ErrNilDocument
	}
	src := Copy(doc)
	return s.bdb.Update(func(btx *bbolt.Tx) error {
		err := btx.DeleteBucket([]byte(name))
		if err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		b, err := btx.CreateBucket([]byte(name))
		if err != nil {
			return err
		}
		bb := NewBoltBucket(b)
		for k, v := range All(src) {
			if err := bb.Set(k, v); err != nil {
				return fmt.Errorf("document %q: %q: %w", name, k, err)
			}
		}
		logDebug(s.logger, "kvdoc: saved document", slog.String("name", name), slog.Int("pairs", src.Len()))
		return nil
	})
}

// Names lists the stored documents in byte order.
func (s *Store) Names() ([]string, error) {
	var names []string
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		return btx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	return names, err
}

// Drop deletes the named document. Dropping a missing document is not an
// error.
func (s *Store) Drop(name string) error {
	return s.bdb.Update(func(btx *bbolt.Tx) error {
		err := btx.DeleteBucket([]byte(name))
		if errors.Is(err, bbolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}
