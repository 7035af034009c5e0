// Package checksum computes and compares the content digests that callers
// attach to envelopes.
//
// The digest is MD5, hex encoded in lowercase. It detects corruption in
// transit; it is not a security boundary, and caller and server are
// expected to compute the same fast digest independently.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"hash"
	"strings"
)

// ErrHashingUnavailable is returned when the engine cannot produce a hash.
var ErrHashingUnavailable = errors.New("checksum: hashing algorithm unavailable")

// Size is the length of a hex digest produced by the default engine.
const Size = 2 * md5.Size

// Engine computes digests with a configurable hash constructor.
// The zero value has no constructor and reports ErrHashingUnavailable.
type Engine struct {
	newHash func() hash.Hash
}

// New returns an Engine using MD5.
func New() *Engine {
	return &Engine{newHash: md5.New}
}

// NewWithHash returns an Engine using the given hash constructor.
// A nil constructor yields an engine whose Digest always fails.
func NewWithHash(newHash func() hash.Hash) *Engine {
	return &Engine{newHash: newHash}
}

var defaultEngine = New()

// Digest computes the digest of payload with the default MD5 engine.
func Digest(payload []byte) (string, error) {
	return defaultEngine.Digest(payload)
}

// Digest returns the canonical (lowercase hex) digest of payload.
func (e *Engine) Digest(payload []byte) (string, error) {
	if e == nil || e.newHash == nil {
		return "", ErrHashingUnavailable
	}
	h := e.newHash()
	if h == nil {
		return "", ErrHashingUnavailable
	}
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Compare reports whether two digests are equal once both are in
// canonical form.
func (e *Engine) Compare(a, b string) bool {
	return Canonical(a) == Canonical(b)
}

// Canonical returns the form in which digests are stored and compared:
// lowercase. Whitespace is significant.
func Canonical(digest string) string {
	return strings.ToLower(digest)
}
