package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgramAddAndAt(t *testing.T) {
	p := &Program{}
	p.Add(int(IMM), 42, int(PSH))
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, int(IMM), p.At(0))
	assert.Equal(t, 42, p.At(1))
}

func TestProgramBackpatch(t *testing.T) {
	p := &Program{}
	p.Add(int(BZ), 0)
	mark := p.Mark()
	p.Add(int(IMM), 1)
	p.Patch(mark, p.Len())
	assert.Equal(t, p.Len(), p.At(mark))
}

func TestProgramLastSetLastDropLast(t *testing.T) {
	p := &Program{}
	p.Add(int(LEA), 4, int(LI))
	assert.Equal(t, int(LI), p.Last())

	p.SetLast(int(PSH))
	assert.Equal(t, int(PSH), p.Last())

	p.DropLast()
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 4, p.Last())
}

func TestProgramInsertBeforeLast(t *testing.T) {
	p := &Program{}
	p.Add(int(LEA), 4, int(LI))
	p.InsertBeforeLast(int(PSH))
	assert.Equal(t, 4, p.Len())
	assert.Equal(t, []int{int(LEA), 4, int(PSH), int(LI)}, p.cells)
}
