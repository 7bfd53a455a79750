package main

import "sort"

// fixedLexemes holds every keyword, operator, and punctuation mark the lexer
// recognizes. It has no "|", "^", "<<" or ">>", so the operators of those
// names in the precedence table below never reach the parser: a lone "|" or
// "^" is a lexical error, and "<<"/">>" lex as two "<"/">" tokens.
// for and union are reserved but have no grammar (see
// DESIGN.md); they still lex cleanly so that source containing them fails in
// the parser with a normal diagnostic rather than at the lexer.
var fixedLexemes = []string{
	// keywords
	"void", "int", "float", "char", "enum", "struct", "union",
	"if", "else", "for", "while", "return", "sizeof",
	// operators, longest first within a length so that e.g. "==" beats "=".
	"&&", "||", "->", "++", "--", "==", "!=", ">=", "<=",
	">", "<", "+", "-", "*", "&", "/", "%", "!", "=", "~", "?", "[",
	// punctuation
	"(", ")", "]", "{", "}", ";", ",", ":", ".",
}

// fixedLexemesByLength is fixedLexemes sorted longest-first, so that scanning
// it in order implements "prefer the longest matching entry" (e.g. "<=" is
// tried before "<"). Ties keep fixedLexemes' original order.
var fixedLexemesByLength = func() []string {
	out := append([]string(nil), fixedLexemes...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}()

// precedence lists operator groups from lowest to highest binding power; an
// operator's level is its index. Groups not present here are not operators at
// all as far as the expression parser's `while` loop is concerned.
var precedence = []map[string]bool{
	{"=": true},
	{"?": true},
	{"||": true},
	{"&&": true},
	{"|": true},
	{"^": true},
	{"&": true},
	{"==": true, "!=": true},
	{"<": true, "<=": true, ">": true, ">=": true},
	{"<<": true, ">>": true},
	{"+": true, "-": true},
	{"*": true, "/": true, "%": true},
	{"++": true, "--": true, ".": true, "->": true, "[": true},
}

// precOf returns the precedence level of op, or -1 if op is not an operator.
func precOf(op string) int {
	for level, ops := range precedence {
		if ops[op] {
			return level
		}
	}
	return -1
}

// precAssign, precTernary, and precIncDec name precedence levels referenced
// by name throughout the compiler, instead of as raw indices.
var (
	precAssign  = precOf("=")
	precTernary = precOf("?")
	precLogAnd  = precOf("&&")
	precBitOr   = precOf("|")
	precMul     = precOf("*")
	precIncDec  = precOf("++")
)
