package sqlengine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	// TokWord is a run of ASCII letters, digits and underscores. Keywords,
	// identifiers and integer literals are all words.
	TokWord TokenKind = iota
	// TokString is a single-quoted literal; Text holds the unquoted body.
	TokString
	// TokSymbol is any other single rune: = > < , ; ( ) * and the rest.
	TokSymbol
	// TokInvalid is an unterminated string literal.
	TokInvalid
)

// Token is one lexical unit. Pos and End are byte offsets into the input.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
	End  int
}

// Is reports whether t is the word kw, ignoring case.
func (t Token) Is(kw string) bool {
	return t.Kind == TokWord && strings.EqualFold(t.Text, kw)
}

// IsSymbol reports whether t is the symbol s.
func (t Token) IsSymbol(s string) bool {
	return t.Kind == TokSymbol && t.Text == s
}

// DigitPrefix returns the leading ASCII digits of a word token, so that
// "12abc" yields "12". ok is false when the token does not start with a
// digit.
func (t Token) DigitPrefix() (digits string, ok bool) {
	if t.Kind != TokWord {
		return "", false
	}
	n := 0
	for n < len(t.Text) && t.Text[n] >= '0' && t.Text[n] <= '9' {
		n++
	}
	return t.Text[:n], n > 0
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// Tokenize splits a query into tokens. It never fails: anything it does
// not recognise becomes a symbol or an invalid token and simply matches
// no clause.
func Tokenize(query string) []Token {
	var toks []Token
	for i := 0; i < len(query); {
		r, size := utf8.DecodeRuneInString(query[i:])
		switch {
		case unicode.IsSpace(r):
			i += size

		case isWordByte(query[i]):
			start := i
			for i < len(query) && isWordByte(query[i]) {
				i++
			}
			toks = append(toks, Token{Kind: TokWord, Text: query[start:i], Pos: start, End: i})

		case r == '\'':
			start := i
			closing := strings.IndexByte(query[i+1:], '\'')
			if closing < 0 {
				toks = append(toks, Token{Kind: TokInvalid, Text: query[start+1:], Pos: start, End: len(query)})
				i = len(query)
				break
			}
			body := query[i+1 : i+1+closing]
			i += closing + 2
			toks = append(toks, Token{Kind: TokString, Text: collapseSpace(body), Pos: start, End: i})

		default:
			toks = append(toks, Token{Kind: TokSymbol, Text: query[i : i+size], Pos: i, End: i + size})
			i += size
		}
	}
	return toks
}

// collapseSpace replaces every whitespace run with a single space.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
