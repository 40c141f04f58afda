package atom

import (
	"slices"
	"strings"
)

// Is reports whether a and b are the same record. It is the same comparison
// as a == b.
func Is(a, b Atom) bool {
	return a.rec == b.rec
}

// Equal reports whether a and b hold the same content. Because the registry
// keeps one record per content this is a pointer compare.
func (a Atom) Equal(b Atom) bool {
	return a.rec == b.rec
}

// Compare orders atoms by content, byte-lexicographically. Identical atoms
// short-circuit to 0. It has the signature slices.SortFunc expects.
func Compare(a, b Atom) int {
	if a.rec == b.rec {
		return 0
	}
	return strings.Compare(a.String(), b.String())
}

// Compare orders a against b by content.
func (a Atom) Compare(b Atom) int {
	return Compare(a, b)
}

// Less reports whether a sorts before b.
func (a Atom) Less(b Atom) bool {
	return Compare(a, b) < 0
}

// CompareString orders a's content against s.
func (a Atom) CompareString(s string) int {
	return strings.Compare(a.String(), s)
}

// EqualString reports whether a's content is s. The stored length is checked
// before any bytes are read.
func (a Atom) EqualString(s string) bool {
	if a.Len() != len(s) {
		return false
	}
	return a.String() == s
}

// LessString reports whether a's content sorts before s.
func (a Atom) LessString(s string) bool {
	return a.String() < s
}

// Sort sorts atoms by content in place.
func Sort(atoms []Atom) {
	slices.SortFunc(atoms, Compare)
}
