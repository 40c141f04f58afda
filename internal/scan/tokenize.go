package scan

import (
	"bytes"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/standardbeagle/atom/internal/config"
)

// Tokenizer splits data into tokens and calls emit for each one. The slice
// passed to emit aliases data and is only valid during the call.
type Tokenizer func(data []byte, emit func(tok []byte))

// TokenizerFor returns the tokenizer for a config tokenize mode.
func TokenizerFor(mode string) (Tokenizer, error) {
	switch mode {
	case config.TokenizeWords, "":
		return Words, nil
	case config.TokenizeLines:
		return Lines, nil
	case config.TokenizeFields:
		return Fields, nil
	default:
		return nil, fmt.Errorf("unknown tokenize mode %q", mode)
	}
}

// Words emits maximal runs of letters, digits and underscores.
func Words(data []byte, emit func(tok []byte)) {
	start := -1
	for i := 0; i < len(data); {
		r, size := rune(data[i]), 1
		if r >= utf8.RuneSelf {
			r, size = utf8.DecodeRune(data[i:])
		}

		if isWordRune(r) {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			emit(data[start:i])
			start = -1
		}
		i += size
	}
	if start >= 0 {
		emit(data[start:])
	}
}

func isWordRune(r rune) bool {
	if r < utf8.RuneSelf {
		return r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
	}
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// Lines emits every line without its terminator. A trailing "\r" is dropped
// so CRLF files produce the same tokens as LF files.
func Lines(data []byte, emit func(tok []byte)) {
	for len(data) > 0 {
		line := data
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			data = nil
		}
		emit(bytes.TrimSuffix(line, []byte{'\r'}))
	}
}

// Fields emits runs of non-space characters.
func Fields(data []byte, emit func(tok []byte)) {
	start := -1
	for i := 0; i < len(data); {
		r, size := rune(data[i]), 1
		if r >= utf8.RuneSelf {
			r, size = utf8.DecodeRune(data[i:])
		}

		if unicode.IsSpace(r) {
			if start >= 0 {
				emit(data[start:i])
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i += size
	}
	if start >= 0 {
		emit(data[start:])
	}
}
