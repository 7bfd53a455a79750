package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	lx := NewLexer(src)
	var toks []Token
	for {
		tok, err := lx.Next()
		if !assert.NoError(t, err) {
			t.FailNow()
		}
		toks = append(toks, tok)
		if tok.Kind == KindEOF {
			return toks
		}
	}
}

func TestLexerFixedLexemesLongestMatch(t *testing.T) {
	toks := lexAll(t, "<= < == = -> - -- ++")
	kinds := make([]string, 0, len(toks)-1)
	for _, tok := range toks[:len(toks)-1] {
		kinds = append(kinds, tok.Lexeme)
	}
	assert.Equal(t, []string{"<=", "<", "==", "=", "->", "-", "--", "++"}, kinds)
}

func TestLexerNoWordBoundary(t *testing.T) {
	// "ifx" lexes as keyword "if" followed by identifier "x": the reference
	// tokenizer never checks word boundaries after a fixed-lexeme match.
	toks := lexAll(t, "ifx")
	assert.Equal(t, KindFixed, toks[0].Kind)
	assert.Equal(t, "if", toks[0].Lexeme)
	assert.Equal(t, KindID, toks[1].Kind)
	assert.Equal(t, "x", toks[1].Lexeme)
}

func TestLexerString(t *testing.T) {
	toks := lexAll(t, `"hi\n"`)
	assert.Equal(t, KindStr, toks[0].Kind)
	assert.Equal(t, `hi\n`, toks[0].Lexeme, "no escape decoding at lex time")
}

func TestLexerCharLiteral(t *testing.T) {
	toks := lexAll(t, `'a'`)
	assert.Equal(t, KindNum, toks[0].Kind)
	assert.Equal(t, "a", toks[0].Lexeme)
}

func TestLexerSkipsWhitespaceAndComments(t *testing.T) {
	toks := lexAll(t, "  /* c */ 1 // trailing\n  2")
	assert.Equal(t, "1", toks[0].Lexeme)
	assert.Equal(t, "2", toks[1].Lexeme)
}

func TestLexerColumnIsPerSpanNotRunningTotal(t *testing.T) {
	lx := NewLexer("ab\ncd")
	tok, err := lx.Next() // "ab"
	assert.NoError(t, err)
	assert.Equal(t, 1, tok.Line)
	assert.Equal(t, 2, tok.Col)

	tok, err = lx.Next() // "cd", after consuming the newline
	assert.NoError(t, err)
	assert.Equal(t, 2, tok.Line)
	assert.Equal(t, 2, tok.Col)
}

func TestLexerUnrecognizedCharacter(t *testing.T) {
	lx := NewLexer("@")
	_, err := lx.Next()
	assert.Error(t, err)
	var lexErr *LexError
	assert.True(t, errors.As(err, &lexErr))
}
