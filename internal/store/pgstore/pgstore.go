// Package pgstore is a Postgresql-based BlockStore.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // register the postgres driver for sql.Open

	"github.com/roach88/dataserver/internal/block"
	"github.com/roach88/dataserver/internal/store"
)

var _ store.BlockStore = (*Store)(nil)

// Store is a Postgresql-based BlockStore.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the data_headers and data_bodies tables if they do not exist.
// (If they do exist, they must have the columns and constraints described here.)
// created_at has microsecond precision.
const Schema = `
CREATE TABLE IF NOT EXISTS data_headers (
  seq BIGSERIAL PRIMARY KEY,
  id TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  block_type TEXT NOT NULL,
  created_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE TABLE IF NOT EXISTS data_bodies (
  seq BIGSERIAL PRIMARY KEY,
  header_seq BIGINT NOT NULL REFERENCES data_headers(seq),
  content BYTEA NOT NULL
);

CREATE INDEX IF NOT EXISTS data_bodies_header_idx ON data_bodies (header_seq);
`

const recordColumns = `h.seq, h.id, h.name, h.block_type, h.created_at, b.content`

// Open connects to the database named by dsn and applies Schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	s, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New produces a new Store using db for storage.
// It expects to create the tables in Schema, or for them to exist already.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert writes a header row and a body row referencing it in one transaction.
func (s *Store) Insert(ctx context.Context, rec block.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert record: begin tx: %w", err)
	}
	defer tx.Rollback()

	const q1 = `INSERT INTO data_headers (id, name, block_type, created_at) VALUES ($1, $2, $3, $4) RETURNING seq`

	var headerSeq int64
	err = tx.QueryRowContext(ctx, q1,
		rec.ID, rec.Header.Name, string(rec.Header.BlockType), rec.Header.CreatedTimestamp.UTC(),
	).Scan(&headerSeq)
	if err != nil {
		return fmt.Errorf("insert record: header: %w", err)
	}

	const q2 = `INSERT INTO data_bodies (header_seq, content) VALUES ($1, $2)`

	if _, err := tx.ExecContext(ctx, q2, headerSeq, []byte(rec.Body.Content)); err != nil {
		return fmt.Errorf("insert record: body: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert record: commit: %w", err)
	}
	return nil
}

// FindByType returns all records of blockType in insertion order.
func (s *Store) FindByType(ctx context.Context, blockType block.BlockType) ([]block.Record, error) {
	const q = `SELECT ` + recordColumns + `
		FROM data_bodies b JOIN data_headers h ON b.header_seq = h.seq
		WHERE h.block_type = $1
		ORDER BY h.seq ASC`

	rows, err := s.db.QueryContext(ctx, q, string(blockType))
	if err != nil {
		return nil, fmt.Errorf("query records by type: %w", err)
	}
	defer rows.Close()

	records := []block.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// FindByName returns the most recently inserted record named name.
func (s *Store) FindByName(ctx context.Context, name string) (block.Record, bool, error) {
	const q = `SELECT ` + recordColumns + `
		FROM data_bodies b JOIN data_headers h ON b.header_seq = h.seq
		WHERE h.name = $1
		ORDER BY h.seq DESC
		LIMIT 1`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, q, name))
	if errors.Is(err, sql.ErrNoRows) {
		return block.Record{}, false, nil
	}
	if err != nil {
		return block.Record{}, false, fmt.Errorf("query record by name: %w", err)
	}
	return rec, true, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM data_bodies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (block.Record, error) {
	var (
		rec       block.Record
		blockType string
		content   []byte
	)
	if err := sc.Scan(&rec.Seq, &rec.ID, &rec.Header.Name, &blockType, &rec.Header.CreatedTimestamp, &content); err != nil {
		return block.Record{}, err
	}
	rec.Header.BlockType = block.BlockType(blockType)
	rec.Body.Content = string(content)
	return rec, nil
}
