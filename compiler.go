package main

import "strconv"

// Compiler turns a token stream into a Program plus a data segment, in a
// single pass: there is no AST, no separate type-checking phase, and no
// optimizer. Expressions emit code as they are recognized; statements and
// declarations do the same (spec.md §9, "single-pass").
type Compiler struct {
	lexer *Lexer
	curr  Token

	currType TypeID

	symtab *SymbolTable
	prog   *Program
	data   []int

	logfn func(mess string, args ...interface{})
}

// NewCompiler prepares a Compiler over src, ready for Compile.
func NewCompiler(src string, opts ...CompilerOption) *Compiler {
	c := &Compiler{
		lexer:  NewLexer(src),
		currType: Int,
		symtab: NewSymbolTable(),
		prog:   &Program{},
	}
	CompilerOptions(opts).apply(c)
	c.advance()

	c.declareSys("malloc", Void.AddPtr(), int(MALLOC))
	c.declareSys("free", Void, int(FREE))
	c.declareSys("printf", Int, int(PRINTF))
	c.declareSys("exit", Int, int(EXIT))

	return c
}

func (c *Compiler) declareSys(name string, ty TypeID, opcode int) {
	if _, err := c.symtab.DeclareID(name, ty, opcode, SYS); err != nil {
		panic(err)
	}
}

func (c *Compiler) logf(mess string, args ...interface{}) {
	if c.logfn != nil {
		c.logfn(mess, args...)
	}
}

// Compile runs parseGlobalDeclarations over the whole token stream and
// returns the entry PC (main's address), the finished Program, and the data
// segment — or the first CompileError encountered, with compilation stopped
// at that point (spec.md §7: no error recovery).
func (c *Compiler) Compile() (entry int, prog *Program, data []int, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*CompileError); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()
	c.parseGlobalDeclarations()
	id, idErr := c.symtab.GetID("main")
	if idErr != nil {
		c.fail("no main function declared")
	}
	return id.Value, c.prog, c.data, nil
}

func (c *Compiler) fail(msg string) {
	panic(&CompileError{Line: c.curr.Line, Col: c.curr.Col, Msg: msg})
}

func (c *Compiler) advance() {
	tok, err := c.lexer.Next()
	if err != nil {
		panic(&CompileError{Line: err.(*LexError).Line, Col: err.(*LexError).Col, Msg: err.Error()})
	}
	c.curr = tok
}

// acceptFixed consumes the current token if it is the fixed lexeme s.
func (c *Compiler) acceptFixed(s string) bool {
	if c.curr.Is(s) {
		c.advance()
		return true
	}
	return false
}

// acceptKind consumes the current token if it has kind k, returning its lexeme.
func (c *Compiler) acceptKind(k Kind) (string, bool) {
	if c.curr.Kind == k {
		lex := c.curr.Lexeme
		c.advance()
		return lex, true
	}
	return "", false
}

func (c *Compiler) expectFixed(s string, msg ...string) {
	if !c.acceptFixed(s) {
		c.fail(firstOr(msg, "expected "+s))
	}
}

func (c *Compiler) expectKind(k Kind, msg ...string) string {
	lex, ok := c.acceptKind(k)
	if !ok {
		c.fail(firstOr(msg, "expected "+k.String()))
	}
	return lex
}

func firstOr(msg []string, fallback string) string {
	if len(msg) > 0 && msg[0] != "" {
		return msg[0]
	}
	return fallback
}

func (c *Compiler) currIsAny(lexemes ...string) bool {
	if c.curr.Kind != KindFixed {
		return false
	}
	for _, l := range lexemes {
		if c.curr.Lexeme == l {
			return true
		}
	}
	return false
}

// numLiteralValue decodes a Num token's lexeme: plain digits parse as a
// decimal integer; a single non-digit character (from a 'x' char literal)
// takes its ASCII code point. Deliberate deviation: the reference compiler
// attempts int() on either form uniformly, which raises on a non-digit
// character — char literals are a documented feature (spec.md §4.3) so it
// must actually work.
func numLiteralValue(lexeme string) int {
	if n, err := strconv.Atoi(lexeme); err == nil {
		return n
	}
	return int(lexeme[0])
}

// emit appends opcodes/operands to the program; each argument is either an
// Opcode or a plain int operand.
func (c *Compiler) emit(cells ...int) { c.prog.Add(cells...) }

func op(o Opcode) int { return int(o) }

///////////////////////////////////////////////////////////////////////////
// EXPRESSION PARSER
///////////////////////////////////////////////////////////////////////////

// parseExpression parses one expression, stopping once the next operator's
// precedence drops below level, and leaves its value computed into ax (or,
// for an lvalue, leaves a trailing LI/LC load that the caller may strip to
// turn it into an address instead — see program.go's Last/DropLast/SetLast).
func (c *Compiler) parseExpression(level int) {
	switch {
	case c.curr.Kind == KindNum:
		lex := c.expectKind(KindNum)
		c.emit(op(IMM), numLiteralValue(lex))
		c.currType = Int

	case c.curr.Kind == KindStr:
		lex := c.expectKind(KindStr)
		c.emit(op(IMM), len(c.data))
		for i := 0; i < len(lex); i++ {
			c.data = append(c.data, int(lex[i]))
		}
		c.data = append(c.data, 0)
		c.currType = Char.AddPtr()

	case c.curr.Kind == KindID:
		name := c.expectKind(KindID)
		ident, err := c.symtab.GetID(name)
		if err != nil {
			c.fail("identifier not declared")
		}

		switch {
		case c.acceptFixed("("):
			if ident.Kind != FUNC && ident.Kind != SYS {
				c.fail("identifier is not a function")
			}
			szParams := 0
			for !c.acceptFixed(")") {
				c.parseExpression(precAssign)
				c.emit(op(PSH))
				szParams += c.symtab.Sizeof(Int)
				if !c.curr.Is(")") {
					c.expectFixed(",")
				}
			}
			if ident.Kind == FUNC {
				c.emit(op(JSR))
			}
			c.emit(ident.Value)
			if szParams != 0 {
				c.emit(op(ADJ), szParams)
			}
			c.currType = ident.Type

		case ident.Kind == ENUM:
			c.emit(op(IMM), ident.Value)
			c.currType = ident.Type

		default:
			switch ident.Kind {
			case LOCAL:
				c.emit(op(LEA), ident.Value)
			case GLOBAL:
				c.emit(op(IMM), ident.Value)
			default:
				c.fail("not an identifier")
			}
			if ident.Type == Char {
				c.emit(op(LC))
			}
			if ident.Type == Int || ident.Type.IsPointer() {
				c.emit(op(LI))
			}
			c.currType = ident.Type
		}

	case c.acceptFixed("sizeof"):
		c.expectFixed("(")
		szType := c.parseBaseType()
		for c.acceptFixed("*") {
			szType = szType.AddPtr()
		}
		c.expectFixed(")")
		c.emit(op(IMM), c.symtab.Sizeof(szType))
		c.currType = Int

	case c.acceptFixed("("):
		if c.currIsAny("void", "char", "int", "struct") {
			var castType TypeID
			switch {
			case c.acceptFixed("void"):
				castType = Void
			case c.acceptFixed("char"):
				castType = Char
			case c.acceptFixed("int"):
				castType = Int
			case c.acceptFixed("struct"):
				name := c.expectKind(KindID)
				ty, terr := c.symtab.GetTag(name)
				if terr != nil {
					c.fail("identifier not declared")
				}
				castType = ty
			}
			for c.acceptFixed("*") {
				castType = castType.AddPtr()
			}
			c.expectFixed(")")
			c.parseExpression(precIncDec)
			c.currType = castType
		} else {
			c.parseExpression(precAssign)
			c.expectFixed(")")
		}

	case c.acceptFixed("*"):
		c.parseExpression(precIncDec)
		c.currType = c.currType.Pointee()
		if c.currType <= 0 {
			c.fail("bad dereference")
		}
		if c.currType == Char {
			c.emit(op(LC))
		} else {
			c.emit(op(LI))
		}

	case c.acceptFixed("&"):
		c.parseExpression(precIncDec)
		if last := c.prog.Last(); last == op(LC) || last == op(LI) {
			c.prog.DropLast()
		}
		c.currType = c.currType.AddPtr()

	case c.currIsAny("++", "--"):
		incop := c.curr.Lexeme
		c.advance()
		c.parseExpression(precIncDec)
		last := c.prog.Last()
		if last != op(LC) && last != op(LI) {
			c.fail("bad lvalue in pre-increment")
		}
		sz := c.symtab.GetAddSize(c.currType)
		adj := op(ADD)
		if incop == "--" {
			adj = op(SUB)
		}
		store := op(SI)
		if c.currType == Char {
			store = op(SC)
		}
		c.emit(op(PSH), op(IMM), sz, adj, store)

	case c.acceptFixed("!"):
		c.parseExpression(precIncDec)
		c.emit(op(PSH), op(IMM), 0, op(EQL))
		c.currType = Int

	case c.acceptFixed("~"):
		c.parseExpression(precIncDec)
		c.emit(op(PSH), op(IMM), -1, op(XOR))
		c.currType = Int

	case c.acceptFixed("+"):
		c.parseExpression(precIncDec)
		c.currType = Int

	case c.acceptFixed("-"):
		c.emit(op(IMM))
		if c.curr.Kind == KindNum {
			lex := c.expectKind(KindNum)
			c.emit(-numLiteralValue(lex))
		} else {
			c.emit(-1, op(PSH))
			c.parseExpression(precIncDec)
			c.emit(op(MUL))
		}

	default:
		c.fail("bad expression")
	}

	for precOfCurr(c.curr) >= level {
		tempType := c.currType

		switch {
		case c.acceptFixed("="):
			last := c.prog.Last()
			if last == op(LI) || last == op(LC) {
				c.prog.SetLast(op(PSH))
			} else {
				c.fail("bad lvalue in assignment")
			}
			c.parseExpression(precAssign)
			c.currType = tempType
			if c.currType == Char {
				c.emit(op(SC))
			} else {
				c.emit(op(SI))
			}

		case c.acceptFixed("?"):
			c.emit(op(BZ), 0)
			b := c.prog.Mark()
			c.parseExpression(precAssign)
			c.emit(op(JMP), 0)
			c.prog.Patch(b, c.prog.Len())
			b = c.prog.Mark()
			c.expectFixed(":")
			c.parseExpression(precTernary)
			c.prog.Patch(b, c.prog.Len())

		case c.acceptFixed("||"):
			c.emit(op(BNZ), 0)
			b := c.prog.Mark()
			c.parseExpression(precLogAnd)
			c.prog.Patch(b, c.prog.Len())
			c.currType = Int

		case c.acceptFixed("&&"):
			c.emit(op(BZ), 0)
			b := c.prog.Mark()
			c.parseExpression(precBitOr)
			c.prog.Patch(b, c.prog.Len())
			c.currType = Int

		case c.acceptFixed("+"):
			c.emit(op(PSH))
			c.parseExpression(precMul)
			sz := c.symtab.GetAddSize(tempType)
			if sz > 1 {
				c.emit(op(PSH), op(IMM), sz, op(MUL))
			}
			c.emit(op(ADD))
			c.currType = tempType

		case c.acceptFixed("-"):
			c.emit(op(PSH))
			c.parseExpression(precMul)
			sz := c.symtab.GetAddSize(tempType)
			if sz > 1 {
				if c.currType == tempType {
					c.emit(op(SUB), op(PSH), op(IMM), sz, op(DIV))
					c.currType = Int
				} else {
					c.emit(op(PSH), op(IMM), sz, op(MUL), op(SUB))
					c.currType = tempType
				}
			} else {
				c.emit(op(SUB))
				c.currType = tempType
			}

		case c.currIsAny("++", "--"):
			last := c.prog.Last()
			if last != op(LC) && last != op(LI) {
				c.fail("bad lvalue in post increment")
			}
			c.prog.InsertBeforeLast(op(PSH))
			sz := c.symtab.GetAddSize(c.currType)
			fwd, back := op(ADD), op(SUB)
			if c.curr.Lexeme == "--" {
				fwd, back = op(SUB), op(ADD)
			}
			store := op(SI)
			if c.currType == Char {
				store = op(SC)
			}
			c.emit(op(PSH), op(IMM), sz, fwd, store, op(PSH), op(IMM), sz, back)
			c.advance()

		case c.currIsAny(".", "->"):
			if c.acceptFixed(".") {
				c.currType = c.currType.AddPtr()
			} else {
				c.expectFixed("->")
			}
			name := c.expectKind(KindID)
			member, merr := c.symtab.GetMember(c.currType.Pointee(), name)
			if merr != nil {
				c.fail("identifier not declared")
			}
			if member.Offset != 0 {
				c.emit(op(PSH), op(IMM), member.Offset, op(ADD))
			}
			c.currType = member.Type
			if c.currType == Char {
				c.emit(op(LC))
			} else {
				c.emit(op(LI))
			}

		case c.acceptFixed("["):
			c.emit(op(PSH))
			c.parseExpression(precAssign)
			c.expectFixed("]")
			if tempType < Ptr {
				c.fail("subscripted value is neither array nor pointer")
			}
			tempType = tempType.Pointee()
			sz := c.symtab.Sizeof(tempType)
			if sz > 1 {
				c.emit(op(PSH), op(IMM), sz, op(MUL))
			}
			c.emit(op(ADD))
			c.currType = tempType
			if c.currType <= Int || c.currType.IsPointer() {
				if c.currType == Char {
					c.emit(op(LC))
				} else {
					c.emit(op(LI))
				}
			}

		default:
			if !c.parseBinaryOp() {
				c.fail("error parsing expression")
			}
		}
	}
}

var binaryOps = []struct {
	lexeme string
	opcode Opcode
}{
	{"|", IOR}, {"^", XOR}, {"&", AND},
	{"==", EQL}, {"!=", NEQ}, {">", GTR}, {"<", LSS}, {">=", GEQ}, {"<=", LEQ},
	{"<<", SHL}, {">>", SHR},
	{"*", MUL}, {"/", DIV}, {"%", MOD},
}

func (c *Compiler) parseBinaryOp() bool {
	for _, e := range binaryOps {
		if c.acceptFixed(e.lexeme) {
			c.emit(op(PSH))
			c.parseExpression(precOf(e.lexeme) + 1)
			c.emit(op(e.opcode))
			c.currType = Int
			return true
		}
	}
	return false
}

func precOfCurr(t Token) int {
	if t.Kind != KindFixed {
		return -1
	}
	return precOf(t.Lexeme)
}

///////////////////////////////////////////////////////////////////////////
// STATEMENT PARSER
///////////////////////////////////////////////////////////////////////////

func (c *Compiler) parseStatement(offset int) int {
	switch {
	case c.acceptFixed(";"):
		// empty statement

	case c.currIsAny("void", "char", "int", "struct", "enum"):
		offset = c.parseDeclaration(LOCAL, offset, 0)

	case c.acceptFixed("if"):
		c.expectFixed("(")
		c.parseExpression(precAssign)
		c.expectFixed(")")
		c.emit(op(BZ), 0)
		b := c.prog.Mark()
		offset = c.parseStatement(offset)
		if c.acceptFixed("else") {
			c.emit(op(JMP), 0)
			c.prog.Patch(b, c.prog.Len())
			b = c.prog.Mark()
			offset = c.parseStatement(offset)
		}
		c.prog.Patch(b, c.prog.Len())

	case c.acceptFixed("while"):
		a := c.prog.Len()
		c.expectFixed("(")
		c.parseExpression(precAssign)
		c.expectFixed(")")
		c.emit(op(BZ), 0)
		b := c.prog.Mark()
		offset = c.parseStatement(offset)
		c.emit(op(JMP), a)
		c.prog.Patch(b, c.prog.Len())

	case c.acceptFixed("return"):
		c.parseExpression(precAssign)
		c.emit(op(RET))
		c.expectFixed(";")

	case c.acceptFixed("{"):
		for !c.acceptFixed("}") {
			offset = c.parseStatement(offset)
		}

	default:
		c.parseExpression(precAssign)
		c.expectFixed(";")
	}
	return offset
}

///////////////////////////////////////////////////////////////////////////
// DECLARATION PARSING
///////////////////////////////////////////////////////////////////////////

func (c *Compiler) parseBaseType() TypeID {
	switch {
	case c.acceptFixed("void"):
		return Void

	case c.acceptFixed("char"):
		return Char

	case c.acceptFixed("int"):
		return Int

	case c.acceptFixed("enum"):
		name, _ := c.acceptKind(KindID)
		if c.acceptFixed("{") {
			if err := c.symtab.DeclareTagRef(name); err != nil {
				c.fail("identifier already declared")
			}
			i := 0
			for !c.acceptFixed("}") {
				memberName := c.expectKind(KindID)
				if c.acceptFixed("=") {
					i = numLiteralValue(c.expectKind(KindNum))
				}
				if _, err := c.symtab.DeclareID(memberName, Int, i, ENUM); err != nil {
					c.fail("identifier already declared")
				}
				if !c.curr.Is("}") {
					c.expectFixed(",", "expected , or }")
				}
				i++
			}
		}
		return Int

	case c.acceptFixed("struct"):
		name, hasName := c.acceptKind(KindID)
		if c.acceptFixed("{") {
			tagType := c.symtab.NextType()
			if hasName {
				if err := c.symtab.DeclareTag(name, tagType); err != nil {
					c.fail("identifier already declared")
				}
			} else {
				_ = c.symtab.DeclareTag("", tagType)
			}
			offset := 0
			for !c.acceptFixed("}") {
				offset = c.parseDeclaration(MEMBER, offset, tagType)
			}
			c.symtab.UpdateSize(tagType, offset)
			return tagType
		}
		ty, err := c.symtab.GetTag(name)
		if err != nil {
			c.fail("identifier not declared")
		}
		return ty

	default:
		c.fail("expected type")
		return Void
	}
}

// parseDeclaration parses one declaration statement: a base type followed by
// one or more comma-separated declarators. kind selects the declaration's
// role (LOCAL/GLOBAL/MEMBER/FUNC-parameter); tagType is only meaningful for
// MEMBER. It returns the updated running offset (byte accumulator for
// locals/members, or the unchanged offset for a function declaration, which
// returns from inside the loop after emitting its whole body).
func (c *Compiler) parseDeclaration(kind IdentKind, offset int, tagType TypeID) int {
	baseType := c.parseBaseType()
	for !c.acceptFixed(";") {
		ty := baseType
		for c.acceptFixed("*") {
			ty = ty.AddPtr()
		}
		name := c.expectKind(KindID)

		if kind == GLOBAL && c.acceptFixed("(") {
			if _, err := c.symtab.DeclareID(name, ty, c.prog.Len(), FUNC); err != nil {
				c.fail("identifier already declared")
			}
			c.symtab.CreateScope()

			i := 0
			for !c.acceptFixed(")") {
				i = c.parseDeclaration(FUNC, i, 0)
			}
			c.symtab.FixParams(i)

			c.expectFixed("{")
			i = 4
			for !c.acceptFixed("}") {
				i = c.parseStatement(i)
			}

			c.emit(op(RET))
			c.symtab.DestroyScope()
			return offset
		}

		if c.symtab.Sizeof(ty) == 0 {
			c.fail("incomplete type")
		}

		offset = c.symtab.Align(offset, ty)

		switch kind {
		case MEMBER:
			c.symtab.UpdateAlignment(tagType, ty)
			if err := c.symtab.DeclareMember(tagType, name, ty, offset); err != nil {
				c.fail("duplicate member")
			}
		case LOCAL:
			if _, err := c.symtab.DeclareID(name, ty, -offset, LOCAL); err != nil {
				c.fail("identifier already declared")
			}
			c.emit(op(ADJ), -c.symtab.Sizeof(ty))
		default:
			declKind := kind
			if declKind == FUNC {
				declKind = LOCAL
			}
			if _, err := c.symtab.DeclareID(name, ty, offset, declKind); err != nil {
				c.fail("identifier already declared")
			}
		}

		if c.acceptFixed("=") {
			id, _ := c.symtab.GetID(name)
			lea := op(IMM)
			if kind == LOCAL {
				lea = op(LEA)
			}
			c.emit(lea, id.Value, op(PSH))
			c.parseExpression(precAssign)
			if ty == Char {
				c.emit(op(SC))
			} else {
				c.emit(op(SI))
			}
		}

		offset += c.symtab.Sizeof(ty)

		if kind == FUNC {
			offset = c.symtab.Align(offset, Int)
			if !c.curr.Is(")") {
				c.expectFixed(",", "expected , or )")
			}
			return offset
		}

		if !c.curr.Is(";") {
			c.expectFixed(",", "expected , or ;")
		}
	}
	return offset
}

// parseGlobalDeclarations parses the whole translation unit: a sequence of
// global variable and function declarations, until the token stream is
// exhausted.
func (c *Compiler) parseGlobalDeclarations() {
	offset := len(c.data)
	for c.curr.Kind != KindEOF {
		offset = c.parseDeclaration(GLOBAL, offset, 0)
	}
}
