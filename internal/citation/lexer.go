package citation

import "strings"

type tokenKind int

const (
	tokInvalid tokenKind = iota
	tokName
	tokPages
	tokInt
	tokDash
	tokSpace
	tokSep
	tokQuote
	tokClose
)

const (
	pagesLiteral = " pages "
	quoteLiteral = "quote"
)

type token struct {
	kind tokenKind
	text string
}

// lexer tokenises the body of a candidate citation group.
type lexer struct {
	src   string
	pos   int
	names []string // longest first
	prev  tokenKind
}

func newLexer(src string, start int, names []string) *lexer {
	return &lexer{src: src, pos: start, names: names}
}

// lexGroup tokenises from the lexer position up to and including the
// closing parenthesis. It stops at the first character that cannot start
// a token, emitting tokInvalid.
func (l *lexer) lexGroup() []token {
	var toks []token
	for {
		tok := l.next()
		toks = append(toks, tok)
		if tok.kind == tokClose || tok.kind == tokInvalid {
			return toks
		}
	}
}

func (l *lexer) next() token {
	if l.pos >= len(l.src) {
		return token{kind: tokInvalid}
	}
	rest := l.src[l.pos:]

	switch {
	case rest[0] == ')':
		return l.emit(tokClose, 1)
	case strings.HasPrefix(rest, pagesLiteral):
		return l.emit(tokPages, len(pagesLiteral))
	case (rest[0] == ',' || rest[0] == ';') && len(rest) > 1 && rest[1] == ' ':
		return l.emit(tokSep, 2)
	case rest[0] == ' ':
		return l.emit(tokSpace, 1)
	case rest[0] == '-':
		return l.emit(tokDash, 1)
	}

	// Page numbers follow " pages " or "-"; anywhere else a digit may
	// start a name such as 2020A.
	inPages := l.prev == tokPages || l.prev == tokDash
	if !inPages {
		if name := l.matchName(rest); name != "" {
			return l.emit(tokName, len(name))
		}
	}
	if isDigit(rest[0]) {
		return l.emit(tokInt, digitRun(rest))
	}
	if name := l.matchName(rest); name != "" {
		return l.emit(tokName, len(name))
	}
	if strings.HasPrefix(rest, quoteLiteral) {
		if n := digitRun(rest[len(quoteLiteral):]); n > 0 {
			return l.emit(tokQuote, len(quoteLiteral)+n)
		}
	}
	return token{kind: tokInvalid}
}

func (l *lexer) emit(kind tokenKind, n int) token {
	tok := token{kind: kind, text: l.src[l.pos : l.pos+n]}
	l.pos += n
	l.prev = kind
	return tok
}

func (l *lexer) matchName(rest string) string {
	for _, name := range l.names {
		if strings.HasPrefix(rest, name) {
			return name
		}
	}
	return ""
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func digitRun(s string) int {
	n := 0
	for n < len(s) && isDigit(s[n]) {
		n++
	}
	return n
}
