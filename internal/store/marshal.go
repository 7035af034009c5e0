package store

import (
	"fmt"
	"time"

	"github.com/roach88/dataserver/internal/block"
)

// timeLayout is the TEXT form of created_at. Always UTC so lexical and
// chronological order agree.
const timeLayout = time.RFC3339Nano

// marshalTime converts a timestamp to its stored TEXT form.
func marshalTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// unmarshalTime parses a stored created_at value.
func unmarshalTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unmarshal created_at %q: %w", s, err)
	}
	return t, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// recordColumns is the select list matching scanRecord.
const recordColumns = `h.seq, h.id, h.name, h.block_type, h.created_at, b.content`

// scanRecord scans a joined header+body row into a Record.
func scanRecord(sc scanner) (block.Record, error) {
	var (
		rec       block.Record
		blockType string
		createdAt string
		content   []byte
	)

	if err := sc.Scan(&rec.Seq, &rec.ID, &rec.Header.Name, &blockType, &createdAt, &content); err != nil {
		return block.Record{}, err
	}

	ts, err := unmarshalTime(createdAt)
	if err != nil {
		return block.Record{}, err
	}

	rec.Header.BlockType = block.BlockType(blockType)
	rec.Header.CreatedTimestamp = ts
	rec.Body.Content = string(content)
	return rec, nil
}
