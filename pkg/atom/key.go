package atom

import "fmt"

// Key is the fingerprint of a string: its windowed digest and exact byte
// length. Equal strings always have equal keys; unequal strings may collide,
// so a Key is a pre-filter and never a substitute for comparing content.
type Key struct {
	Digest uint64 // HashStringEnds(s, EndsSize)
	Length int    // len(s) in bytes
}

// KeyOf computes the fingerprint of s.
func KeyOf(s string) Key {
	return Key{
		Digest: HashStringEnds(s, EndsSize),
		Length: len(s),
	}
}

// KeyOfBytes computes the fingerprint of b. KeyOfBytes(b) == KeyOf(string(b)).
func KeyOfBytes(b []byte) Key {
	return Key{
		Digest: HashBytesEnds(b, EndsSize),
		Length: len(b),
	}
}

// Compare orders keys by digest, then by length.
func (k Key) Compare(other Key) int {
	switch {
	case k.Digest < other.Digest:
		return -1
	case k.Digest > other.Digest:
		return 1
	case k.Length < other.Length:
		return -1
	case k.Length > other.Length:
		return 1
	}
	return 0
}

// Windowed reports whether the digest covers only the head and tail windows
// rather than the whole string.
func (k Key) Windowed() bool {
	return k.Length > 2*EndsSize
}

func (k Key) String() string {
	return fmt.Sprintf("%016x/%d", k.Digest, k.Length)
}
