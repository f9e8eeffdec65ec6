package udl

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer turns UDL source text into a stream of tokens. Comments and
// whitespace are skipped; doc comments (///) are collected and attached
// to the next token via PendingDoc.
type Lexer struct {
	src  string
	off  int
	line int
	col  int

	pendingDoc []string
}

// NewLexer creates a lexer over the given source text.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// PendingDoc returns the doc comment lines collected immediately before
// the most recently returned token, and clears them.
func (l *Lexer) PendingDoc() string {
	if len(l.pendingDoc) == 0 {
		return ""
	}
	doc := strings.Join(l.pendingDoc, "\n")
	l.pendingDoc = nil
	return doc
}

func (l *Lexer) pos() Position {
	return Position{Line: l.line, Column: l.col}
}

func (l *Lexer) peek() byte {
	if l.off >= len(l.src) {
		return 0
	}
	return l.src[l.off]
}

func (l *Lexer) peekAt(n int) byte {
	if l.off+n >= len(l.src) {
		return 0
	}
	return l.src[l.off+n]
}

func (l *Lexer) advance() byte {
	c := l.src[l.off]
	l.off++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

// Next returns the next token, or a SyntaxError on an unexpected character
// or an unterminated string or block comment.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipTrivia(); err != nil {
		return Token{}, err
	}

	pos := l.pos()
	if l.off >= len(l.src) {
		return Token{Kind: TokenEOF, Pos: pos}, nil
	}

	c := l.peek()
	switch {
	case isIdentStart(c):
		return l.lexIdent(pos), nil
	case c >= '0' && c <= '9':
		return l.lexNumber(pos)
	case c == '"':
		return l.lexString(pos)
	}

	l.advance()
	var kind TokenKind
	switch c {
	case '{':
		kind = TokenLBrace
	case '}':
		kind = TokenRBrace
	case '(':
		kind = TokenLParen
	case ')':
		kind = TokenRParen
	case '[':
		kind = TokenLBracket
	case ']':
		kind = TokenRBracket
	case '<':
		kind = TokenLAngle
	case '>':
		kind = TokenRAngle
	case ',':
		kind = TokenComma
	case ';':
		kind = TokenSemicolon
	case '?':
		kind = TokenQuestion
	case '=':
		kind = TokenEquals
	case '-':
		kind = TokenMinus
	default:
		r, _ := utf8.DecodeRuneInString(l.src[l.off-1:])
		return Token{}, syntaxErrorf(pos, "unexpected character %q", r)
	}
	return Token{Kind: kind, Lit: string(c), Pos: pos}, nil
}

// skipTrivia consumes whitespace and comments, collecting /// doc lines.
func (l *Lexer) skipTrivia() error {
	for l.off < len(l.src) {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peekAt(1) == '/':
			isDoc := l.peekAt(2) == '/'
			l.advance()
			l.advance()
			if isDoc {
				l.advance()
			}
			start := l.off
			for l.off < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
			if isDoc {
				l.pendingDoc = append(l.pendingDoc, strings.TrimSpace(l.src[start:l.off]))
			}
		case c == '/' && l.peekAt(1) == '*':
			pos := l.pos()
			l.advance()
			l.advance()
			closed := false
			for l.off < len(l.src) {
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				return syntaxErrorf(pos, "unterminated block comment")
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) lexIdent(pos Position) Token {
	start := l.off
	for l.off < len(l.src) && isIdentPart(l.peek()) {
		l.advance()
	}
	return Token{Kind: TokenIdent, Lit: l.src[start:l.off], Pos: pos}
}

func (l *Lexer) lexNumber(pos Position) (Token, error) {
	start := l.off
	kind := TokenInt
	for l.off < len(l.src) && l.peek() >= '0' && l.peek() <= '9' {
		l.advance()
	}
	if l.peek() == '.' && l.peekAt(1) >= '0' && l.peekAt(1) <= '9' {
		kind = TokenFloat
		l.advance()
		for l.off < len(l.src) && l.peek() >= '0' && l.peek() <= '9' {
			l.advance()
		}
	}
	return Token{Kind: kind, Lit: l.src[start:l.off], Pos: pos}, nil
}

func (l *Lexer) lexString(pos Position) (Token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for l.off < len(l.src) {
		c := l.advance()
		switch c {
		case '"':
			return Token{Kind: TokenString, Lit: sb.String(), Pos: pos}, nil
		case '\\':
			if l.off >= len(l.src) {
				return Token{}, syntaxErrorf(pos, "unterminated string literal")
			}
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\', '"':
				sb.WriteByte(esc)
			default:
				return Token{}, syntaxErrorf(pos, "unsupported escape sequence \\%c", esc)
			}
		case '\n':
			return Token{}, syntaxErrorf(pos, "unterminated string literal")
		default:
			sb.WriteByte(c)
		}
	}
	return Token{}, syntaxErrorf(pos, "unterminated string literal")
}

func isIdentStart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c))
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
