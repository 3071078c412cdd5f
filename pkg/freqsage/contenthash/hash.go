// Package contenthash derives the fixed-width keys records are stored under.
//
// Digests are BLAKE3-256 over a layout-version byte followed by each word as
// a little-endian uint32 byte length and its raw bytes; sequence digests end
// with the uint32 word count. Lengths are always 32-bit so digests do not
// depend on the host's pointer width, and length prefixes keep "ab"+"c" and
// "a"+"bc" apart.
package contenthash

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Size is the digest width in bytes.
const Size = 32

// Digest is a content hash.
type Digest [Size]byte

// String returns the lowercase hex form.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 8 bytes in hex, for logs and error context.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:8])
}

// FromBytes copies b into a Digest.
func FromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != Size {
		return d, fmt.Errorf("digest must be %d bytes, got %d", Size, len(b))
	}
	copy(d[:], b)
	return d, nil
}

// Hasher hashes words and word sequences salted with a layout version.
type Hasher struct {
	layout byte
}

// New returns a Hasher salted with the low byte of layoutVersion.
func New(layoutVersion uint32) Hasher {
	return Hasher{layout: byte(layoutVersion)}
}

// Word hashes a single cleaned word.
func (h Hasher) Word(word string) Digest {
	w := blake3.New()
	w.Write([]byte{h.layout})
	writeWord(w, word)
	return sum(w)
}

// Sequence hashes an ordered word sequence.
func (h Hasher) Sequence(words []string) Digest {
	w := blake3.New()
	w.Write([]byte{h.layout})
	for _, word := range words {
		writeWord(w, word)
	}
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(words)))
	w.Write(n[:])
	return sum(w)
}

func writeWord(w *blake3.Hasher, word string) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(word)))
	w.Write(n[:])
	w.Write([]byte(word))
}

func sum(w *blake3.Hasher) Digest {
	var d Digest
	copy(d[:], w.Sum(nil))
	return d
}
