// Package atom interns strings for the lifetime of the process.
//
// An Atom is a one-pointer handle to a record holding a string's fingerprint
// and bytes in a single allocation. The registry guarantees exactly one record
// per distinct content, so two atoms are equal (==) exactly when their strings
// are byte-for-byte equal, and comparing them costs a pointer compare.
//
// Interned memory is never released. Intern identifiers, paths and tags that
// repeat; do not intern unbounded streams of unique strings in a long-running
// process.
package atom

import "fmt"

// Atom is an interned string. The zero value is the atom for "".
//
// Atoms are comparable and may be used directly as map keys. They are
// immutable and safe to share between goroutines by value.
type Atom struct {
	rec *recordHeader
}

// emptyKey is the fingerprint reported by the zero Atom.
var emptyKey = KeyOf("")

// New returns the unique atom for s.
func New(s string) Atom {
	if len(s) == 0 {
		return Atom{}
	}
	return global().intern(s, KeyOf(s))
}

// FromBytes returns the unique atom for the content of b. b is only copied
// when the content has never been interned before.
func FromBytes(b []byte) Atom {
	if len(b) == 0 {
		return Atom{}
	}
	s := bytesString(b)
	return global().intern(s, KeyOf(s))
}

// FromRunes returns the atom for the UTF-8 encoding of r.
func FromRunes(r []rune) Atom {
	return New(string(r))
}

// FromStringer interns the result of v.String(). A nil v yields the empty atom.
func FromStringer(v fmt.Stringer) Atom {
	if v == nil {
		return Atom{}
	}
	return New(v.String())
}

// String returns the interned content without copying.
func (a Atom) String() string {
	if a.rec == nil {
		return ""
	}
	return a.rec.content()
}

// Len returns the length of the content in bytes.
func (a Atom) Len() int {
	if a.rec == nil {
		return 0
	}
	return a.rec.key.Length
}

// IsEmpty reports whether a is the atom for "".
func (a Atom) IsEmpty() bool {
	return a.rec == nil
}

// Key returns the fingerprint stored in the record header.
func (a Atom) Key() Key {
	if a.rec == nil {
		return emptyKey
	}
	return a.rec.key
}

// Digest returns the fingerprint digest stored in the record header.
func (a Atom) Digest() uint64 {
	return a.Key().Digest
}

// Hash returns a hash of a suitable for custom hash tables. It is the stored
// digest: content determines it, and equal atoms share one record.
func (a Atom) Hash() uint64 {
	return a.Digest()
}
