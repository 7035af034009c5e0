package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/dataserver/internal/block"
)

// FindByType returns all records of the given block type.
// Results are ordered by header seq ASC (insertion order).
//
// Returns an empty slice (not nil) if no records match.
func (s *Store) FindByType(ctx context.Context, blockType block.BlockType) ([]block.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM data_bodies b
		JOIN data_headers h ON b.header_seq = h.seq
		WHERE h.block_type = ?
		ORDER BY h.seq ASC
	`, string(blockType))
	if err != nil {
		return nil, fmt.Errorf("query records by type: %w", err)
	}
	defer rows.Close()

	records := []block.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

// FindByName returns the record with the given name.
// This assumes one record per name; when several share it, the most
// recently inserted one is returned.
func (s *Store) FindByName(ctx context.Context, name string) (block.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM data_bodies b
		JOIN data_headers h ON b.header_seq = h.seq
		WHERE h.name = ?
		ORDER BY h.seq DESC
		LIMIT 1
	`, name)

	rec, err := scanRecord(row)
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
