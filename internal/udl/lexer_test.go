package udl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_BasicTokens(t *testing.T) {
	// Test plan:
	// - Lex a representative token stream
	// - Verify kinds, literals and positions

	lex := NewLexer("namespace demo { u32 add(u32 a, u32 b); };")

	expected := []struct {
		kind TokenKind
		lit  string
	}{
		{TokenIdent, "namespace"},
		{TokenIdent, "demo"},
		{TokenLBrace, ""},
		{TokenIdent, "u32"},
		{TokenIdent, "add"},
		{TokenLParen, ""},
		{TokenIdent, "u32"},
		{TokenIdent, "a"},
		{TokenComma, ""},
		{TokenIdent, "u32"},
		{TokenIdent, "b"},
		{TokenRParen, ""},
		{TokenSemicolon, ""},
		{TokenRBrace, ""},
		{TokenSemicolon, ""},
		{TokenEOF, ""},
	}

	for _, want := range expected {
		tok, err := lex.Next()
		require.NoError(t, err)
		assert.Equal(t, want.kind, tok.Kind)
		if want.lit != "" {
			assert.Equal(t, want.lit, tok.Lit)
		}
	}
}

func TestLexer_PositionsAndComments(t *testing.T) {
	// Test plan:
	// - Line and column tracking across newlines
	// - Line and block comments are skipped
	// - Doc comments accumulate into PendingDoc

	input := "// leading comment\n/* block */\n/// Adds things.\nadd"
	lex := NewLexer(input)

	tok, err := lex.Next()
	require.NoError(t, err)
	assert.Equal(t, TokenIdent, tok.Kind)
	assert.Equal(t, "add", tok.Lit)
	assert.Equal(t, 4, tok.Pos.Line)
	assert.Equal(t, 1, tok.Pos.Column)
	assert.Equal(t, "Adds things.", lex.PendingDoc())
}

func TestLexer_NumbersAndStrings(t *testing.T) {
	// Test plan:
	// - Integer and float literals
	// - String literals with escapes
	// - Negative numbers arrive as a minus token plus a number

	lex := NewLexer(`42 3.5 -7 "hi\n"`)

	tok, err := lex.Next()
	require.NoError(t, err)
	assert.Equal(t, TokenInt, tok.Kind)
	assert.Equal(t, "42", tok.Lit)

	tok, err = lex.Next()
	require.NoError(t, err)
	assert.Equal(t, TokenFloat, tok.Kind)
	assert.Equal(t, "3.5", tok.Lit)

	tok, err = lex.Next()
	require.NoError(t, err)
	assert.Equal(t, TokenMinus, tok.Kind)

	tok, err = lex.Next()
	require.NoError(t, err)
	assert.Equal(t, TokenInt, tok.Kind)
	assert.Equal(t, "7", tok.Lit)

	tok, err = lex.Next()
	require.NoError(t, err)
	assert.Equal(t, TokenString, tok.Kind)
	assert.Equal(t, "hi\n", tok.Lit)
}

func TestLexer_AngleBracketsAndPunctuation(t *testing.T) {
	// Test plan:
	// - Generic type punctuation lexes as discrete tokens

	lex := NewLexer("sequence<record<string, u8?>>")

	kinds := []TokenKind{
		TokenIdent, TokenLAngle, TokenIdent, TokenLAngle, TokenIdent,
		TokenComma, TokenIdent, TokenQuestion, TokenRAngle, TokenRAngle, TokenEOF,
	}
	for _, want := range kinds {
		tok, err := lex.Next()
		require.NoError(t, err)
		assert.Equal(t, want, tok.Kind)
	}
}

func TestLexer_UnterminatedString(t *testing.T) {
	// Test plan:
	// - An unterminated string literal is a syntax error with a position

	lex := NewLexer(`"oops`)

	_, err := lex.Next()
	require.Error(t, err)
	var syn *SyntaxError
	require.ErrorAs(t, err, &syn)
	assert.Equal(t, 1, syn.Pos.Line)
}
