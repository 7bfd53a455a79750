package main

// Program is the append-only sequence of mixed cells the compiler emits
// into: opcodes and, for operand-bearing opcodes, the one operand cell that
// follows them (spec.md §3, "Program"). It is read-only once execution
// starts.
type Program struct {
	cells []int
}

// Len returns the number of cells emitted so far.
func (p *Program) Len() int { return len(p.cells) }

// At returns the cell at index i.
func (p *Program) At(i int) int { return p.cells[i] }

// Add appends one or more cells in emission order.
func (p *Program) Add(cells ...int) {
	p.cells = append(p.cells, cells...)
}

// Mark returns the index of the last emitted cell, for later backpatching
// (e.g. immediately after emitting a branch's placeholder operand).
func (p *Program) Mark() int { return len(p.cells) - 1 }

// Patch overwrites the cell at index i, e.g. to backpatch a branch operand
// once its target PC is known.
func (p *Program) Patch(i, val int) { p.cells[i] = val }

// Last returns the most recently emitted cell, used by the expression
// parser to detect an implicit lvalue load (a trailing LI/LC) without
// threading an explicit result descriptor through every parse method (see
// DESIGN.md and spec.md §9 on backpatching/lvalue detection).
func (p *Program) Last() int { return p.cells[len(p.cells)-1] }

// SetLast overwrites the most recently emitted cell in place (e.g. rewriting
// a trailing LI/LC into PSH for assignment).
func (p *Program) SetLast(val int) { p.cells[len(p.cells)-1] = val }

// DropLast removes the most recently emitted cell (e.g. dropping a trailing
// LI/LC when address-of turns a load into an address computation).
func (p *Program) DropLast() { p.cells = p.cells[:len(p.cells)-1] }

// InsertBeforeLast inserts val immediately before the most recently emitted
// cell (used by post-increment/decrement to duplicate the lvalue address
// ahead of its load).
func (p *Program) InsertBeforeLast(val int) {
	i := len(p.cells) - 1
	p.cells = append(p.cells, 0)
	copy(p.cells[i+1:], p.cells[i:])
	p.cells[i] = val
}
