package udl

import "fmt"

// Position is a location in a UDL source file, 1-based.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenString
	TokenInt
	TokenFloat

	TokenLBrace
	TokenRBrace
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenLAngle
	TokenRAngle
	TokenComma
	TokenSemicolon
	TokenQuestion
	TokenEquals
	TokenMinus
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of input"
	case TokenIdent:
		return "identifier"
	case TokenString:
		return "string literal"
	case TokenInt:
		return "integer literal"
	case TokenFloat:
		return "float literal"
	case TokenLBrace:
		return "'{'"
	case TokenRBrace:
		return "'}'"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	case TokenLBracket:
		return "'['"
	case TokenRBracket:
		return "']'"
	case TokenLAngle:
		return "'<'"
	case TokenRAngle:
		return "'>'"
	case TokenComma:
		return "','"
	case TokenSemicolon:
		return "';'"
	case TokenQuestion:
		return "'?'"
	case TokenEquals:
		return "'='"
	case TokenMinus:
		return "'-'"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Token is a single lexical token with its source position.
// For TokenString, Lit holds the unquoted contents.
type Token struct {
	Kind TokenKind
	Lit  string
	Pos  Position
}
