package atom

import (
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashing constants.
//
// Digests are XXH64 with a fixed seed, so they are stable across runs of the
// same build. They are not a persistent format and carry no cryptographic
// guarantee; a digest only buckets candidates before a full content compare.
const (
	// HashSeed seeds every digest computed by this package.
	HashSeed = 0x9e3779b9

	// EndsSize is the head and tail window used when computing a Key.
	EndsSize = 64
)

// HashBytes digests every byte of b.
func HashBytes(b []byte) uint64 {
	var d xxhash.Digest
	d.ResetWithSeed(HashSeed)
	_, _ = d.Write(b)
	return d.Sum64()
}

// HashBytesHeadTail digests the first head bytes of b followed by the last
// tail bytes, as if the two windows were concatenated. When b is not longer
// than head+tail the whole buffer is digested, so the result equals HashBytes(b).
// Negative window sizes count as zero.
func HashBytesHeadTail(b []byte, head, tail int) uint64 {
	head = max(head, 0)
	tail = max(tail, 0)
	if len(b) <= head+tail {
		return HashBytes(b)
	}

	var d xxhash.Digest
	d.ResetWithSeed(HashSeed)
	_, _ = d.Write(b[:head])
	_, _ = d.Write(b[len(b)-tail:])
	return d.Sum64()
}

// HashBytesEnds is HashBytesHeadTail with equal head and tail windows.
func HashBytesEnds(b []byte, end int) uint64 {
	return HashBytesHeadTail(b, end, end)
}

// HashString digests every byte of s without copying it.
func HashString(s string) uint64 {
	return HashBytes(stringBytes(s))
}

// HashStringHeadTail is the string form of HashBytesHeadTail.
func HashStringHeadTail(s string, head, tail int) uint64 {
	return HashBytesHeadTail(stringBytes(s), head, tail)
}

// HashStringEnds is the string form of HashBytesEnds.
func HashStringEnds(s string, end int) uint64 {
	return HashBytesEnds(stringBytes(s), end)
}

// stringBytes views s as a byte slice. The result must never be written to.
func stringBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// bytesString views b as a string for lookups that must not allocate.
// The result is only valid while b is left unmodified.
func bytesString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}
