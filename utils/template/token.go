package template

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp // == != <= >= < > | : , ( ) [ ] .
)

type token struct {
	kind  tokenKind
	value string
}

// exprLexer tokenizes the inside of a `{{ ... }}` or `{% ... %}` fragment.
type exprLexer struct {
	src string
	pos int
}

func newExprLexer(src string) *exprLexer {
	return &exprLexer{src: src}
}

func (l *exprLexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return rune(l.src[l.pos]), true
}

func (l *exprLexer) skipSpace() {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\n' || l.src[l.pos] == '\r') {
		l.pos++
	}
}

var twoCharOps = []string{"==", "!=", "<=", ">="}

func (l *exprLexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF}, nil
	}

	rest := l.src[l.pos:]

	for _, op := range twoCharOps {
		if strings.HasPrefix(rest, op) {
			l.pos += 2
			return token{kind: tokOp, value: op}, nil
		}
	}

	c := l.src[l.pos]
	switch c {
	case '|', ':', ',', '(', ')', '[', ']', '.', '<', '>', '=':
		l.pos++
		return token{kind: tokOp, value: string(c)}, nil
	case '\'', '"':
		return l.lexString(c)
	}

	if c == '-' || (c >= '0' && c <= '9') {
		if c == '-' {
			// Only treat as numeric sign when followed by a digit; otherwise
			// it's not a valid operator in this grammar.
			if l.pos+1 < len(l.src) && l.src[l.pos+1] >= '0' && l.src[l.pos+1] <= '9' {
				return l.lexNumber()
			}
		} else {
			return l.lexNumber()
		}
	}

	if isIdentStart(rune(c)) {
		return l.lexIdent()
	}

	return token{}, &Error{Fragment: l.src, Message: "unexpected character '" + string(c) + "'"}
}

func (l *exprLexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++ // skip opening quote
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			return token{kind: tokString, value: sb.String()}, nil
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			sb.WriteByte(l.src[l.pos])
			l.pos++
			continue
		}
		sb.WriteByte(c)
		l.pos++
	}
	return token{}, &Error{Fragment: l.src[start:], Message: "unterminated string literal"}
}

func (l *exprLexer) lexNumber() (token, error) {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.src) && (l.src[l.pos] >= '0' && l.src[l.pos] <= '9' || l.src[l.pos] == '.') {
		l.pos++
	}
	val := l.src[start:l.pos]
	if _, err := strconv.ParseFloat(val, 64); err != nil {
		return token{}, &Error{Fragment: val, Message: "invalid number literal"}
	}
	return token{kind: tokNumber, value: val}, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func (l *exprLexer) lexIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(rune(l.src[l.pos])) {
		l.pos++
	}
	return token{kind: tokIdent, value: l.src[start:l.pos]}, nil
}

// tokenize fully tokenizes src, used by the expression parser which wants
// lookahead over the whole token stream.
func tokenize(src string) ([]token, error) {
	lex := newExprLexer(src)
	var toks []token
	for {
		tok, err := lex.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			break
		}
		toks = append(toks, tok)
	}
	return toks, nil
}
