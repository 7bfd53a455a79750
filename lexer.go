package main

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reSkip   = regexp.MustCompile(`^(?:\s+|/\*(?s:.*?)\*/|//[^\n]*)`)
	reIdent  = regexp.MustCompile(`^[_A-Za-z][_A-Za-z0-9]*`)
	reNumber = regexp.MustCompile(`^[0-9]+`)
	reChar   = regexp.MustCompile(`^'[A-Za-z0-9_]'`)
)

// LexError reports an unrecognized character sequence (spec.md §4.1 step 7).
type LexError struct {
	Line, Col int
	Rest      string
}

func (e *LexError) Error() string {
	rest := e.Rest
	if len(rest) > 16 {
		rest = rest[:16] + "..."
	}
	return fmt.Sprintf("%d:%d, unrecognized character at %q", e.Line, e.Col, rest)
}

// Lexer turns source text into a lazily-consumed Token stream. It holds no
// buffered lookahead of its own; the Compiler pulls exactly one token ahead.
type Lexer struct {
	src  string
	pos  int
	line int
	col  int
}

// NewLexer prepares a Lexer over the given source text.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// consume advances pos past n bytes of the source, updating line/col to
// reflect the trailing partial line of just that span (matching the
// reference tokenizer: col is not a running total, it is recomputed per
// consumed span).
func (lx *Lexer) consume(n int) string {
	text := lx.src[lx.pos : lx.pos+n]
	lx.pos += n
	lx.line += strings.Count(text, "\n")
	lx.col = len(lastLine(text))
	return text
}

func lastLine(text string) string {
	if text == "" {
		return ""
	}
	parts := strings.Split(text, "\n")
	if strings.HasSuffix(text, "\n") {
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// Next returns the next token in the stream, or a KindEOF token once the
// source is exhausted. It returns a non-nil error only for an unrecognized
// character sequence.
func (lx *Lexer) Next() (Token, error) {
	for {
		if lx.pos >= len(lx.src) {
			return Token{Kind: KindEOF, Line: lx.line, Col: lx.col}, nil
		}
		if m := reSkip.FindString(lx.src[lx.pos:]); m != "" {
			lx.consume(len(m))
			continue
		}
		break
	}

	rest := lx.src[lx.pos:]

	for _, lex := range fixedLexemesByLength {
		if strings.HasPrefix(rest, lex) {
			lx.consume(len(lex))
			return Token{Kind: KindFixed, Lexeme: lex, Line: lx.line, Col: lx.col}, nil
		}
	}

	if strings.HasPrefix(rest, `"`) {
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 || strings.ContainsRune(rest[1:1+end], '\n') {
			return Token{}, &LexError{lx.line, lx.col, rest}
		}
		content := rest[1 : 1+end]
		lx.consume(1 + end + 1)
		return Token{Kind: KindStr, Lexeme: content, Line: lx.line, Col: lx.col}, nil
	}

	if m := reChar.FindString(rest); m != "" {
		lx.consume(len(m))
		return Token{Kind: KindNum, Lexeme: m[1 : len(m)-1], Line: lx.line, Col: lx.col}, nil
	}

	if m := reIdent.FindString(rest); m != "" {
		lx.consume(len(m))
		return Token{Kind: KindID, Lexeme: m, Line: lx.line, Col: lx.col}, nil
	}

	if m := reNumber.FindString(rest); m != "" {
		lx.consume(len(m))
		return Token{Kind: KindNum, Lexeme: m, Line: lx.line, Col: lx.col}, nil
	}

	return Token{}, &LexError{lx.line, lx.col, rest}
}
