package atom

import (
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	atomerrors "github.com/standardbeagle/atom/internal/errors"
)

// RangeError is returned by SliceChecked.
type RangeError = atomerrors.RangeError

// Sentinels wrapped by RangeError, for use with errors.Is.
var (
	ErrOutOfRange  = atomerrors.ErrOutOfRange
	ErrNotBoundary = atomerrors.ErrNotBoundary
)

// CopyString returns a copy of the content that does not alias the record.
func (a Atom) CopyString() string {
	return strings.Clone(a.String())
}

// Bytes returns a fresh copy of the content.
func (a Atom) Bytes() []byte {
	if a.rec == nil {
		return nil
	}
	return []byte(a.String())
}

// Runes decodes the content into a fresh rune slice.
func (a Atom) Runes() []rune {
	if a.rec == nil {
		return nil
	}
	return []rune(a.String())
}

// Path returns the content as an OS-native path, replacing slashes with the
// platform separator.
func (a Atom) Path() string {
	return filepath.FromSlash(a.CopyString())
}

// ByteAt returns the byte at offset i. It panics when i is out of range, as
// indexing a string does.
func (a Atom) ByteAt(i int) byte {
	return a.String()[i]
}

// Slice returns the content between byte offsets i and j. It panics when the
// range is invalid, as slicing a string does. The result aliases the record.
func (a Atom) Slice(i, j int) string {
	return a.String()[i:j]
}

// SliceChecked is Slice with errors instead of panics. It also rejects
// offsets that fall inside a multi-byte UTF-8 sequence.
func (a Atom) SliceChecked(i, j int) (string, error) {
	s := a.String()
	if i < 0 || j < i || j > len(s) {
		return "", atomerrors.NewRangeError("slice", i, j, len(s), atomerrors.ErrOutOfRange)
	}
	if !onBoundary(s, i) || !onBoundary(s, j) {
		return "", atomerrors.NewRangeError("slice", i, j, len(s), atomerrors.ErrNotBoundary)
	}
	return s[i:j], nil
}

func onBoundary(s string, i int) bool {
	return i == 0 || i == len(s) || utf8.RuneStart(s[i])
}

// EachRune calls fn with the byte offset and value of every rune until fn
// returns false.
func (a Atom) EachRune(fn func(offset int, r rune) bool) {
	for i, r := range a.String() {
		if !fn(i, r) {
			return
		}
	}
}

// MarshalText implements encoding.TextMarshaler, so atoms encode as JSON strings.
func (a Atom) MarshalText() ([]byte, error) {
	return a.Bytes(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler by interning text.
func (a *Atom) UnmarshalText(text []byte) error {
	*a = FromBytes(text)
	return nil
}

// GoString formats the atom for %#v.
func (a Atom) GoString() string {
	return "atom.New(" + strconv.Quote(a.String()) + ")"
}
