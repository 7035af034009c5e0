package checksum

import (
	"crypto/md5"
	"hash"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest_KnownVectors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "d41d8cd98f00b204e9800998ecf8427e"},
		{"hello", "5d41402abc4b2a76b9719d911017c592"},
		{"The quick brown fox jumps over the lazy dog", "9e107d9d372bb6826bd81d3542a419d6"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Digest([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, Size)
		})
	}
}

func TestDigest_Deterministic(t *testing.T) {
	e := New()
	payload := []byte("AKCp5fU4WNWKBVvhXsbNhqk33tawri9iJUkA5o4A6YqpwvAoYjajVw8xdEw6r9796h1wEp29D")

	first, err := e.Digest(payload)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Digest(payload)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, strings.ToLower(first), first, "digest must be lowercase")
}

func TestDigest_Unavailable(t *testing.T) {
	tests := []struct {
		name string
		e    *Engine
	}{
		{"nil engine", nil},
		{"zero engine", &Engine{}},
		{"nil constructor", NewWithHash(nil)},
		{"constructor returns nil", NewWithHash(func() hash.Hash { return nil })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.e.Digest([]byte("hello"))
			assert.ErrorIs(t, err, ErrHashingUnavailable)
		})
	}
}

func TestCompare_CanonicalCasing(t *testing.T) {
	e := New()
	assert.True(t, e.Compare("5d41402abc4b2a76b9719d911017c592", "5D41402ABC4B2A76B9719D911017C592"))
	assert.False(t, e.Compare(" 5d41402abc4b2a76b9719d911017c592\n", "5d41402abc4b2a76b9719d911017c592"))
	assert.False(t, e.Compare("5d41402abc4b2a76b9719d911017c592", "deadbeef"))
	assert.False(t, e.Compare("", "d41d8cd98f00b204e9800998ecf8427e"))
}

func TestNewWithHash_CustomConstructor(t *testing.T) {
	calls := 0
	e := NewWithHash(func() hash.Hash {
		calls++
		return md5.New()
	})

	got, err := e.Digest([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", got)
	assert.Equal(t, 1, calls)
}
