// Package storetest is a conformance suite for store.BlockStore
// implementations. Each backend's tests call Run with a constructor that
// returns a fresh, empty store.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataserver/internal/block"
	"github.com/roach88/dataserver/internal/store"
)

// Opener returns a new empty store. It should register cleanup with t.
type Opener func(t *testing.T) store.BlockStore

var baseTime = time.Date(2026, 3, 14, 15, 9, 26, 535897000, time.UTC)

// NewRecord builds a record with a deterministic id derived from n.
func NewRecord(n int, name string, blockType block.BlockType, content string) block.Record {
	return block.Record{
		ID: fmt.Sprintf("rec-%04d", n),
		Header: block.Header{
			Name:             name,
			BlockType:        blockType,
			CreatedTimestamp: baseTime.Add(time.Duration(n) * time.Second),
		},
		Body: block.Body{Content: content},
	}
}

// Run executes the conformance suite against stores produced by open.
func Run(t *testing.T, open Opener) {
	t.Run("EmptyStore", func(t *testing.T) { testEmptyStore(t, open(t)) })
	t.Run("InsertThenFindByName", func(t *testing.T) { testInsertThenFindByName(t, open(t)) })
	t.Run("FindByTypePartitions", func(t *testing.T) { testFindByTypePartitions(t, open(t)) })
	t.Run("FindByTypeOrder", func(t *testing.T) { testFindByTypeOrder(t, open(t)) })
	t.Run("DuplicateNamesAppend", func(t *testing.T) { testDuplicateNamesAppend(t, open(t)) })
	t.Run("ContentRoundTrip", func(t *testing.T) { testContentRoundTrip(t, open(t)) })
}

func testEmptyStore(t *testing.T, s store.BlockStore) {
	ctx := context.Background()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for _, bt := range block.BlockTypes {
		recs, err := s.FindByType(ctx, bt)
		require.NoError(t, err)
		assert.NotNil(t, recs, "FindByType must return an empty slice, not nil")
		assert.Empty(t, recs)
	}

	_, found, err := s.FindByName(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func testInsertThenFindByName(t *testing.T, s store.BlockStore) {
	ctx := context.Background()
	rec := NewRecord(1, "Test", block.BlockTypeA, "hello")

	require.NoError(t, s.Insert(ctx, rec))

	got, found, err := s.FindByName(ctx, "Test")
	require.NoError(t, err)
	require.True(t, found)
	assertSameRecord(t, rec, got)
	assert.Positive(t, got.Seq)

	_, found, err = s.FindByName(ctx, "test")
	require.NoError(t, err)
	assert.False(t, found, "name lookup is case-sensitive")

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testFindByTypePartitions(t *testing.T, s store.BlockStore) {
	ctx := context.Background()
	const numA, numB = 4, 3

	inserted := map[string]block.Record{}
	for i := 0; i < numA+numB; i++ {
		bt := block.BlockTypeA
		if i >= numA {
			bt = block.BlockTypeB
		}
		rec := NewRecord(i, fmt.Sprintf("block-%d", i), bt, fmt.Sprintf("content-%d", i))
		require.NoError(t, s.Insert(ctx, rec))
		inserted[rec.ID] = rec
	}

	gotA, err := s.FindByType(ctx, block.BlockTypeA)
	require.NoError(t, err)
	assert.Len(t, gotA, numA)

	gotB, err := s.FindByType(ctx, block.BlockTypeB)
	require.NoError(t, err)
	assert.Len(t, gotB, numB)

	union := map[string]block.Record{}
	for _, rec := range append(gotA, gotB...) {
		union[rec.ID] = rec
	}
	require.Len(t, union, len(inserted))
	for id, want := range inserted {
		got, ok := union[id]
		require.True(t, ok, "record %s missing from union", id)
		assertSameRecord(t, want, got)
	}
}

func testFindByTypeOrder(t *testing.T, s store.BlockStore) {
	ctx := context.Background()
	names := []string{"zeta", "alpha", "mu"}
	for i, name := range names {
		require.NoError(t, s.Insert(ctx, NewRecord(i, name, block.BlockTypeB, name)))
	}

	got, err := s.FindByType(ctx, block.BlockTypeB)
	require.NoError(t, err)
	require.Len(t, got, len(names))
	for i, rec := range got {
		assert.Equal(t, names[i], rec.Header.Name, "results must be in insertion order")
		if i > 0 {
			assert.Greater(t, rec.Seq, got[i-1].Seq)
		}
	}
}

func testDuplicateNamesAppend(t *testing.T, s store.BlockStore) {
	ctx := context.Background()
	first := NewRecord(1, "dup", block.BlockTypeA, "body")
	second := NewRecord(2, "dup", block.BlockTypeB, "body")

	require.NoError(t, s.Insert(ctx, first))
	require.NoError(t, s.Insert(ctx, second))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "duplicate names are appended, not replaced")

	got, found, err := s.FindByName(ctx, "dup")
	require.NoError(t, err)
	require.True(t, found)
	assertSameRecord(t, second, got)

	gotA, err := s.FindByType(ctx, block.BlockTypeA)
	require.NoError(t, err)
	require.Len(t, gotA, 1)
	assertSameRecord(t, first, gotA[0])
}

func testContentRoundTrip(t *testing.T, s store.BlockStore) {
	ctx := context.Background()
	contents := []string{
		"",
		"AKCp5fU4WNWKBVvhXsbNhqk33tawri9iJUkA5o4A6YqpwvAoYjajVw8xdEw6r9796h1wEp29D",
		"multi\nline\tcontent with 'quotes' and \"doubles\"",
		"unicode: café 日本 \U0001F600",
		"nul\x00byte",
	}

	for i, content := range contents {
		rec := NewRecord(i, fmt.Sprintf("content-%d", i), block.BlockTypeA, content)
		require.NoError(t, s.Insert(ctx, rec))

		got, found, err := s.FindByName(ctx, rec.Header.Name)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, content, got.Body.Content)
	}
}

// recordOpts compare records the way a round trip through a backend
// preserves them: Seq is store-assigned and timestamps may change location.
var recordOpts = []cmp.Option{
	cmpopts.IgnoreFields(block.Record{}, "Seq"),
	cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) }),
}

func assertSameRecord(t *testing.T, want, got block.Record) {
	t.Helper()
	if diff := cmp.Diff(want, got, recordOpts...); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}
