// Package keys derives cache keys from a resource name and the origin it was requested from.
package keys

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Size is the length of a CacheKey in bytes (128 bits).
const Size = 16

/*
CacheKey is the fixed-length identifier of one cached resource.

Two requests for the same resource from the same origin always produce the same key. The same
resource requested from two origins produces two keys, so tenants on different hosts never share
an entry. Keys are digests: a collision aliases two resources and is not detected.
*/
type CacheKey [Size]byte

// Derive maps (resource, origin) to a CacheKey. It never fails; empty strings are valid inputs.
//
// Each field is framed as an 8-byte big-endian length followed by its bytes,
// so ("ab", "c") and ("a", "bc") hash different input streams.
func Derive(resource, origin string) CacheKey {
	h, err := blake2b.New(Size, nil)
	if err != nil {
		// Only returned for an invalid size or a key longer than 64 bytes.
		panic(err)
	}
	writeField(h, resource)
	writeField(h, origin)

	var k CacheKey
	copy(k[:], h.Sum(nil))
	return k
}

// writeField length-prefixes s so ("ab","c") and ("a","bc") hash apart.
// w is always a hash.Hash, whose Write never returns an error.
func writeField(w io.Writer, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	_, _ = w.Write(n[:])
	_, _ = w.Write([]byte(s))
}

// String returns the key as lowercase hex.
func (k CacheKey) String() string {
	return hex.EncodeToString(k[:])
}

// Compare orders keys bytewise. It returns -1, 0 or +1.
func Compare(a, b CacheKey) int {
	return bytes.Compare(a[:], b[:])
}
