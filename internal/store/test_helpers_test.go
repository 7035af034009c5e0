package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/dataserver/internal/block"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a record with minimal required fields.
func createTestRecord(id, name string, blockType block.BlockType, content string) block.Record {
	return block.Record{
		ID: id,
		Header: block.Header{
			Name:             name,
			BlockType:        blockType,
			CreatedTimestamp: time.Date(2026, 1, 2, 3, 4, 5, 123456789, time.UTC),
		},
		Body: block.Body{Content: content},
	}
}
