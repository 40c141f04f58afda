// Package sniff decides from a file's leading bytes whether it is text worth
// tokenizing.
package sniff

import "bytes"

// headerLen is how many leading bytes are inspected.
const headerLen = 8000

// Files with more control bytes than this share of the header are binary
const controlRatio = 0.3

type signature struct {
	name  string
	magic []byte
}

var signatures = []signature{
	{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{"jpeg", []byte{0xFF, 0xD8, 0xFF}},
	{"gif", []byte("GIF87a")},
	{"gif", []byte("GIF89a")},
	{"pdf", []byte("%PDF-")},
	{"zip", []byte{0x50, 0x4B, 0x03, 0x04}},
	{"gzip", []byte{0x1F, 0x8B}},
	{"elf", []byte{0x7F, 'E', 'L', 'F'}},
	{"wasm", []byte{0x00, 'a', 's', 'm'}},
}

// header returns the prefix of data that is inspected.
func header(data []byte) []byte {
	return data[:min(len(data), headerLen)]
}

// Signature names the binary format whose magic bytes open data, or returns
// "" when none matches.
func Signature(data []byte) string {
	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.name
		}
	}
	return ""
}

// IsBinary reports whether data should be skipped: it opens with a known
// binary signature, has a NUL byte in its header, or its header is mostly
// control characters.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if Signature(data) != "" {
		return true
	}

	head := header(data)
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}

	control := 0
	for _, b := range head {
		// tab, LF, VT, FF and CR are text
		if b < 9 || (b > 13 && b < 32) || b == 127 {
			control++
		}
	}
	return float64(control)/float64(len(head)) > controlRatio
}
