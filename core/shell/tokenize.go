package shell

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	escapeChar = '\\'
	quoteChar  = '"'
)

// Tokenize splits a line into words.
//
// A backslash takes the next character literally, inside quotes too. Double
// quotes delimit a span where whitespace is kept. Unquoted whitespace ends a
// word. Empty words are never produced. Bytes that aren't valid UTF-8 are
// kept as they are.
func Tokenize(line string) ([]string, error) {
	var (
		words    []string
		word     strings.Builder
		inQuote  bool
		inEscape bool
	)

	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

	for i := 0; i < len(line); {
		ch, size := utf8.DecodeRuneInString(line[i:])
		raw := line[i : i+size]
		i += size

		switch {
		case inEscape:
			word.WriteString(raw)
			inEscape = false
		case ch == escapeChar:
			inEscape = true
		case ch == quoteChar:
			inQuote = !inQuote
		case inQuote:
			word.WriteString(raw)
		case unicode.IsSpace(ch):
			flush()
		default:
			word.WriteString(raw)
		}
	}

	// End of input.
	switch {
	case inQuote:
		return nil, syntaxErrorf("unterminated string")
	case inEscape:
		return nil, syntaxErrorf("unexpected escape sequence")
	}
	flush()

	return words, nil
}
