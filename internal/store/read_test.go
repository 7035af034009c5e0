package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataserver/internal/block"
)

func TestFindByType_ReturnsMatchingOnly(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, createTestRecord("a1", "one", block.BlockTypeA, "1")))
	require.NoError(t, s.Insert(ctx, createTestRecord("b1", "two", block.BlockTypeB, "2")))
	require.NoError(t, s.Insert(ctx, createTestRecord("a2", "three", block.BlockTypeA, "3")))

	got, err := s.FindByType(ctx, block.BlockTypeA)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "a2", got[1].ID)
	assert.Equal(t, "1", got[0].Body.Content)
	assert.Equal(t, "3", got[1].Body.Content)
}

func TestFindByType_Empty(t *testing.T) {
	s := createTestStore(t)

	got, err := s.FindByType(context.Background(), block.BlockTypeB)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindByName_PreservesTimestamp(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("a1", "Test", block.BlockTypeA, "hello")
	require.NoError(t, s.Insert(ctx, rec))

	got, found, err := s.FindByName(ctx, "Test")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, rec.Header.CreatedTimestamp.Equal(got.Header.CreatedTimestamp))
	assert.Equal(t, int64(1), got.Seq)
}

func TestFindByName_LatestWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, createTestRecord("a1", "Test", block.BlockTypeA, "hello")))
	require.NoError(t, s.Insert(ctx, createTestRecord("b1", "Test", block.BlockTypeB, "hello")))

	got, found, err := s.FindByName(ctx, "Test")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "b1", got.ID)
	assert.Equal(t, block.BlockTypeB, got.Header.BlockType)
}

func TestFindByName_CorruptTimestamp(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, createTestRecord("a1", "Test", block.BlockTypeA, "hello")))
	_, err := s.db.Exec(`UPDATE data_headers SET created_at = 'not-a-time'`)
	require.NoError(t, err)

	_, _, err = s.FindByName(ctx, "Test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal created_at")
}
