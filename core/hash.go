package core

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Hash is a 32-byte BLAKE3 digest over a canonical byte encoding. The zero
// value denotes "no parent" for genesis headers and the empty state tree.
type Hash [32]byte

// ZeroHash is the sentinel used for "no parent" and empty subtrees.
var ZeroHash Hash

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the sentinel zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

// hashBytes returns the BLAKE3 digest of the concatenation of buf.
func hashBytes(buf ...[]byte) Hash {
	hasher := blake3.New(32, nil)
	for _, b := range buf {
		hasher.Write(b)
	}
	var out Hash
	copy(out[:], hasher.Sum(nil))
	return out
}
