// Package pebblestore is a BlockStore backed by an embedded Pebble
// key-value database.
//
// Keys:
//
//	h/<seq>   CBOR header row  {id, name, blockType, createdTimestamp}
//	b/<seq>   CBOR body row    {headerSeq, content}
//	m/seq     last allocated sequence number (big-endian uint64)
//
// <seq> is a zero-padded 20-digit decimal so lexical key order is
// insertion order. The body row carries the reference to its header.
package pebblestore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/roach88/dataserver/internal/block"
	"github.com/roach88/dataserver/internal/codec"
	"github.com/roach88/dataserver/internal/store"
)

var _ store.BlockStore = (*Store)(nil)

const (
	headerPrefix = "h/"
	bodyPrefix   = "b/"
	seqKey       = "m/seq"
)

type headerRow struct {
	ID               string    `cbor:"id"`
	Name             string    `cbor:"name"`
	BlockType        string    `cbor:"blockType"`
	CreatedTimestamp time.Time `cbor:"createdTimestamp"`
}

type bodyRow struct {
	HeaderSeq int64  `cbor:"headerSeq"`
	Content   []byte `cbor:"content"`
}

// ErrClosed is returned by every operation on a closed Store.
var ErrClosed = errors.New("pebblestore: store is closed")

// Store is a Pebble-based BlockStore.
type Store struct {
	// mu guards db and seq. Insert and Close hold it exclusively; reads
	// hold it shared so Close waits for them.
	mu  sync.RWMutex
	db  *pebble.DB
	seq int64
}

// Open opens or creates a Pebble database in dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble store: %w", err)
	}

	seq, err := loadSeq(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, seq: seq}, nil
}

func loadSeq(db *pebble.DB) (int64, error) {
	val, closer, err := db.Get([]byte(seqKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load sequence: %w", err)
	}
	defer closer.Close()
	if len(val) != 8 {
		return 0, fmt.Errorf("load sequence: corrupt value of length %d", len(val))
	}
	return int64(binary.BigEndian.Uint64(val)), nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func seqSuffix(seq int64) string {
	return fmt.Sprintf("%020d", seq)
}

// Insert writes the header row, body row and new sequence number in one
// synced batch.
func (s *Store) Insert(ctx context.Context, rec block.Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("insert record: %w", ErrClosed)
	}

	seq := s.seq + 1

	hdr, err := codec.Marshal(headerRow{
		ID:               rec.ID,
		Name:             rec.Header.Name,
		BlockType:        string(rec.Header.BlockType),
		CreatedTimestamp: rec.Header.CreatedTimestamp.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert record: encode header: %w", err)
	}
	body, err := codec.Marshal(bodyRow{HeaderSeq: seq, Content: []byte(rec.Body.Content)})
	if err != nil {
		return fmt.Errorf("insert record: encode body: %w", err)
	}
	var seqVal [8]byte
	binary.BigEndian.PutUint64(seqVal[:], uint64(seq))

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set([]byte(headerPrefix+seqSuffix(seq)), hdr, nil); err != nil {
		return fmt.Errorf("insert record: header: %w", err)
	}
	if err := batch.Set([]byte(bodyPrefix+seqSuffix(seq)), body, nil); err != nil {
		return fmt.Errorf("insert record: body: %w", err)
	}
	if err := batch.Set([]byte(seqKey), seqVal[:], nil); err != nil {
		return fmt.Errorf("insert record: sequence: %w", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("insert record: commit: %w", err)
	}

	s.seq = seq
	return nil
}

// FindByType scans every header in insertion order.
func (s *Store) FindByType(ctx context.Context, blockType block.BlockType) ([]block.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	iter, err := s.headerIter()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	records := []block.Record{}
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var hdr headerRow
		if err := codec.Unmarshal(iter.Value(), &hdr); err != nil {
			return nil, fmt.Errorf("decode header %s: %w", iter.Key(), err)
		}
		if hdr.BlockType != string(blockType) {
			continue
		}
		rec, err := s.assemble(iter.Key(), hdr)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate headers: %w", err)
	}
	return records, nil
}

// FindByName scans headers from newest to oldest and returns the first match.
func (s *Store) FindByName(ctx context.Context, name string) (block.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	iter, err := s.headerIter()
	if err != nil {
		return block.Record{}, false, err
	}
	defer iter.Close()

	for iter.Last(); iter.Valid(); iter.Prev() {
		if err := ctx.Err(); err != nil {
			return block.Record{}, false, err
		}
		var hdr headerRow
		if err := codec.Unmarshal(iter.Value(), &hdr); err != nil {
			return block.Record{}, false, fmt.Errorf("decode header %s: %w", iter.Key(), err)
		}
		if hdr.Name != name {
			continue
		}
		rec, err := s.assemble(iter.Key(), hdr)
		if err != nil {
			return block.Record{}, false, err
		}
		return rec, true, nil
	}
	if err := iter.Error(); err != nil {
		return block.Record{}, false, fmt.Errorf("iterate headers: %w", err)
	}
	return block.Record{}, false, nil
}

// Count returns the number of header rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	iter, err := s.headerIter()
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// headerIter must be called with mu held.
func (s *Store) headerIter() (*pebble.Iterator, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(headerPrefix),
		UpperBound: []byte("h0"), // '0' sorts immediately after '/'
	})
	if err != nil {
		return nil, fmt.Errorf("open header iterator: %w", err)
	}
	return iter, nil
}

// assemble loads the body row for a header key and combines the two.
func (s *Store) assemble(headerKey []byte, hdr headerRow) (block.Record, error) {
	suffix := string(headerKey[len(headerPrefix):])

	seq, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return block.Record{}, fmt.Errorf("parse header key %q: %w", headerKey, err)
	}

	val, closer, err := s.db.Get([]byte(bodyPrefix + suffix))
	if err != nil {
		return block.Record{}, fmt.Errorf("load body %d: %w", seq, err)
	}
	var body bodyRow
	err = codec.Unmarshal(val, &body)
	closer.Close()
	if err != nil {
		return block.Record{}, fmt.Errorf("decode body %d: %w", seq, err)
	}
	if body.HeaderSeq != seq {
		return block.Record{}, fmt.Errorf("body %d references header %d", seq, body.HeaderSeq)
	}

	return block.Record{
		ID:  hdr.ID,
		Seq: seq,
		Header: block.Header{
			Name:             hdr.Name,
			BlockType:        block.BlockType(hdr.BlockType),
			CreatedTimestamp: hdr.CreatedTimestamp,
		},
		Body: block.Body{Content: string(body.Content)},
	}, nil
}
