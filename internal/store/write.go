package store

import (
	"context"
	"fmt"

	"github.com/roach88/dataserver/internal/block"
)

// Insert appends a record as a header row plus a body row referencing it.
// Both rows are written in one transaction.
//
// Insert does not validate content and does not enforce name uniqueness:
// a second record with an existing name is stored alongside the first.
// A duplicate rec.ID violates the UNIQUE constraint and returns an error.
func (s *Store) Insert(ctx context.Context, rec block.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert record: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO data_headers
		(id, name, block_type, created_at)
		VALUES (?, ?, ?, ?)
	`,
		rec.ID,
		rec.Header.Name,
		string(rec.Header.BlockType),
		marshalTime(rec.Header.CreatedTimestamp),
	)
	if err != nil {
		return fmt.Errorf("insert record: header: %w", err)
	}

	headerSeq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert record: last insert id: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO data_bodies
		(header_seq, content)
		VALUES (?, ?)
	`,
		headerSeq,
		[]byte(rec.Body.Content),
	)
	if err != nil {
		return fmt.Errorf("insert record: body: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert record: commit: %w", err)
	}

	return nil
}
