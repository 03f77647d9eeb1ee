// Package tokenizer splits text into ordered, lowercased token
// sequences for the sparse encoder. It is a pure function of its
// input: no state is kept between calls.
package tokenizer

import (
	"strings"
	"unicode"
)

// Mode selects the tokenization strategy.
type Mode string

// Mode values.
const (
	// ModeSimple splits on Unicode whitespace and punctuation only.
	ModeSimple Mode = "simple"
	// ModeCode additionally splits identifiers on case boundaries,
	// underscores, hyphens, and common punctuation, and drops a fixed
	// stop list of function words and generic keywords.
	ModeCode Mode = "code"
)

// stopWords is the frozen code-mode stop list. Do not make this
// configurable - doing so would break vocabulary portability across
// runs built with different stop lists.
var stopWords = map[string]struct{}{
	"var": {}, "let": {}, "const": {}, "this": {}, "that": {}, "new": {},
	"null": {}, "true": {}, "false": {}, "the": {}, "is": {}, "at": {},
	"of": {}, "on": {}, "and": {}, "or": {}, "to": {}, "in": {}, "it": {},
	"for": {}, "as": {}, "be": {}, "by": {}, "an": {}, "if": {}, "do": {},
	"no": {}, "so": {},
}

// codeDelimiters is the delimiter class code mode splits segments on,
// before case/snake/acronym splitting runs within each segment.
const codeDelimiters = " \t\n\r,;:{}()[]<>'\"=+-*/\\|&^%$#@!~`"

// Tokenize splits text into an ordered sequence of lowercased tokens
// according to mode. Output is deterministic for identical input.
func Tokenize(text string, mode Mode) []string {
	if mode == ModeCode {
		return tokenizeCode(text)
	}
	return tokenizeSimple(text)
}

func tokenizeSimple(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		lower := strings.ToLower(f)
		if len([]rune(lower)) > 1 {
			tokens = append(tokens, lower)
		}
	}
	return tokens
}

func tokenizeCode(text string) []string {
	segments := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(codeDelimiters, r)
	})

	var tokens []string
	for _, seg := range segments {
		for _, word := range splitSegment(seg) {
			lower := strings.ToLower(word)
			if len([]rune(lower)) <= 1 {
				continue
			}
			if _, stop := stopWords[lower]; stop {
				continue
			}
			tokens = append(tokens, lower)
		}
	}
	return tokens
}

// splitSegment applies camelCase, snake/kebab, and acronym splitting to
// a single delimiter-free segment, then splits the result on whitespace.
func splitSegment(seg string) []string {
	var b strings.Builder
	runes := []rune(seg)

	for i, r := range runes {
		if r == '_' || r == '-' {
			b.WriteRune(' ')
			continue
		}

		if i > 0 {
			prev := runes[i-1]
			// camelCase boundary: lowercase followed by uppercase.
			if unicode.IsLower(prev) && unicode.IsUpper(r) {
				b.WriteRune(' ')
			} else if unicode.IsUpper(prev) && unicode.IsUpper(r) &&
				i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				// acronym boundary: run of uppercase followed by an
				// UppercaseLowercase prefix, e.g. XMLParser -> XML Parser.
				b.WriteRune(' ')
			}
		}

		b.WriteRune(r)
	}

	return strings.Fields(b.String())
}
