// Package testutil holds deterministic clocks, ID generators and envelope
// fixtures shared by the test suites of several packages.
package testutil

import (
	"testing"

	"github.com/roach88/dataserver/internal/block"
	"github.com/roach88/dataserver/internal/checksum"
)

const (
	TestName      = "Test"
	TestNameEmpty = ""
	DummyData     = "AKCp5fU4WNWKBVvhXsbNhqk33tawri9iJUkA5o4A6YqpwvAoYjajVw8xdEw6r9796h1wEp29D"

	// IncorrectChecksum never matches any MD5 digest.
	IncorrectChecksum = "0xBEEFBEEF"
)

// MustDigest returns the checksum of content, failing the test on error.
func MustDigest(t testing.TB, content string) string {
	t.Helper()
	sum, err := checksum.Digest([]byte(content))
	if err != nil {
		t.Fatalf("digest %q: %v", content, err)
	}
	return sum
}

// NewEnvelope builds an envelope whose checksum matches content.
func NewEnvelope(t testing.TB, name string, blockType block.BlockType, content string) *block.Envelope {
	t.Helper()
	return &block.Envelope{
		Header:   &block.Header{Name: name, BlockType: blockType},
		Body:     block.Body{Content: content},
		Checksum: MustDigest(t, content),
	}
}

// TestEnvelope is the standard valid envelope: TestName, BlockTypeA, DummyData.
func TestEnvelope(t testing.TB) *block.Envelope {
	t.Helper()
	return NewEnvelope(t, TestName, block.BlockTypeA, DummyData)
}

// TestEnvelopeIncorrectHash is TestEnvelope with IncorrectChecksum.
func TestEnvelopeIncorrectHash(t testing.TB) *block.Envelope {
	t.Helper()
	env := TestEnvelope(t)
	env.Checksum = IncorrectChecksum
	return env
}

// TestEnvelopeEmptyName is TestEnvelope with an empty name.
func TestEnvelopeEmptyName(t testing.TB) *block.Envelope {
	t.Helper()
	return NewEnvelope(t, TestNameEmpty, block.BlockTypeA, DummyData)
}
