// Package leveldb is a record store kept in a goleveldb directory.
// Records are msgpack-encoded under "addr:<zero-padded id>" so iteration returns them in id order.
package leveldb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/store"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	recordPrefix = "addr:"
	counterKey   = "addr_counter"
)

// Store wraps an open leveldb database.
type Store struct {
	mu       sync.Mutex
	db       *leveldb.DB
	locality string
}

var _ store.Store = (*Store)(nil)

// Open opens the database at path. With create unset a missing directory is ErrNotFound.
func Open(path, locality string, create bool) (*Store, error) {
	if !create {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, path)
		}
	}
	db, err := leveldb.OpenFile(path, &opt.Options{ErrorIfMissing: !create})
	if err != nil {
		return nil, fmt.Errorf("leveldb: open %s: %w", path, err)
	}
	return &Store{db: db, locality: locality}, nil
}

func recordKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", recordPrefix, id))
}

// Records implements store.Reader.
func (s *Store) Records(ctx context.Context) ([]index.Record, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(recordPrefix)), nil)
	defer iter.Release()

	var records []index.Record
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rec index.Record
		if err := msgpack.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("%w: key %s: %v", store.ErrInvalidRecord, iter.Key(), err)
		}
		if rec.Locality == "" {
			rec.Locality = s.locality
		}
		records = append(records, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("leveldb: iterate: %w", err)
	}
	return records, nil
}

// Create implements store.Writer. Ids come from a counter stored next to the records.
func (s *Store) Create(ctx context.Context, addr store.NewAddress) (index.Record, error) {
	if err := addr.Validate(s.locality); err != nil {
		return index.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.lastID()
	if err != nil {
		return index.Record{}, err
	}
	rec := addr.Record(id + 1)

	batch := new(leveldb.Batch)
	if err := putRecord(batch, rec); err != nil {
		return index.Record{}, err
	}
	batch.Put([]byte(counterKey), []byte(strconv.FormatInt(rec.ID, 10)))
	if err := s.db.Write(batch, nil); err != nil {
		return index.Record{}, fmt.Errorf("leveldb: write record: %w", err)
	}
	return rec, nil
}

// Import stores records with their own ids in one batch and moves the counter past them.
func (s *Store) Import(ctx context.Context, records []index.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, err := s.lastID()
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := putRecord(batch, rec); err != nil {
			return err
		}
		last = max(last, rec.ID)
	}
	batch.Put([]byte(counterKey), []byte(strconv.FormatInt(last, 10)))
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("leveldb: import %d records: %w", len(records), err)
	}
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) lastID() (int64, error) {
	raw, err := s.db.Get([]byte(counterKey), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("leveldb: read counter: %w", err)
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: counter %q", store.ErrInvalidRecord, raw)
	}
	return id, nil
}

func putRecord(batch *leveldb.Batch, rec index.Record) error {
	if rec.ID < 0 {
		return fmt.Errorf("%w: negative id %d", store.ErrInvalidRecord, rec.ID)
	}
	value, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("leveldb: encode record %d: %w", rec.ID, err)
	}
	batch.Put(recordKey(rec.ID), value)
	return nil
}
