package block

import (
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// BlockType classifies a block.
type BlockType string

const (
	BlockTypeA BlockType = "BLOCKTYPEA"
	BlockTypeB BlockType = "BLOCKTYPEB"
)

// BlockTypes is the closed set of recognised block types, in declaration order.
var BlockTypes = []BlockType{BlockTypeA, BlockTypeB}

// Valid reports whether t is a member of BlockTypes.
func (t BlockType) Valid() bool {
	for _, known := range BlockTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t BlockType) String() string {
	return string(t)
}

// ParseBlockType returns the BlockType named by s.
// Matching is exact; there is no case folding.
func ParseBlockType(s string) (BlockType, error) {
	t := BlockType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown block type %q: must be one of %v", s, BlockTypes)
	}
	return t, nil
}

// Header identifies and classifies a block.
type Header struct {
	Name             string    `json:"name" cbor:"name"`
	BlockType        BlockType `json:"blockType" cbor:"blockType"`
	CreatedTimestamp time.Time `json:"createdTimestamp" cbor:"createdTimestamp"`
}

// Body is the opaque payload of a block.
type Body struct {
	Content string `json:"content" cbor:"content"`
}

// Validate checks that the content is valid UTF-8. Content travels as a
// JSON or CBOR text string, and neither carries arbitrary bytes intact.
func (b Body) Validate() error {
	return b.validate("")
}

func (b Body) validate(name string) error {
	if !utf8.ValidString(b.Content) {
		return NewMalformedError(name, "content is not valid UTF-8")
	}
	return nil
}

// Bytes returns the content as hashed by the checksum engine.
func (b Body) Bytes() []byte {
	return []byte(b.Content)
}

// Envelope is the transient unit a caller submits: header, body and the
// caller's checksum of the body. It is never persisted as-is.
type Envelope struct {
	Header   *Header `json:"header" cbor:"header"`
	Body     Body    `json:"body" cbor:"body"`
	Checksum string  `json:"checksum" cbor:"checksum"`
}

// Record is a persisted header+body pair.
//
// ID is assigned at ingestion. Seq is the store's insertion sequence and
// is zero until the record has been read back from a store.
type Record struct {
	ID     string `json:"id" cbor:"id"`
	Seq    int64  `json:"seq" cbor:"seq"`
	Header Header `json:"header" cbor:"header"`
	Body   Body   `json:"body" cbor:"body"`
}

// NormalizeName returns the NFC form of name. Names are stored and looked
// up in this form so that canonically equivalent spellings match.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}
