package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolTableDeclareAndLookup(t *testing.T) {
	st := NewSymbolTable()
	id, err := st.DeclareID("x", Int, 4, GLOBAL)
	assert.NoError(t, err)
	assert.Equal(t, Int, id.Type)

	got, err := st.GetID("x")
	assert.NoError(t, err)
	assert.Same(t, id, got)
}

func TestSymbolTableRedeclareInSameScope(t *testing.T) {
	st := NewSymbolTable()
	_, err := st.DeclareID("x", Int, 0, GLOBAL)
	assert.NoError(t, err)
	_, err = st.DeclareID("x", Char, 0, GLOBAL)
	assert.Error(t, err)
	var rerr *RedeclaredError
	assert.True(t, errors.As(err, &rerr))
}

func TestSymbolTableUndeclared(t *testing.T) {
	st := NewSymbolTable()
	_, err := st.GetID("nope")
	assert.Error(t, err)
}

func TestSymbolTableScopeShadowing(t *testing.T) {
	st := NewSymbolTable()
	outer, _ := st.DeclareID("x", Int, 0, GLOBAL)

	st.CreateScope()
	inner, err := st.DeclareID("x", Char, -4, LOCAL)
	assert.NoError(t, err)

	got, _ := st.GetID("x")
	assert.Same(t, inner, got)

	st.DestroyScope()
	got, _ = st.GetID("x")
	assert.Same(t, outer, got)
}

func TestSymbolTableStructMembersAndSizing(t *testing.T) {
	st := NewSymbolTable()
	tagType := st.NextType()
	assert.NoError(t, st.DeclareTag("P", tagType))

	offset := 0
	st.UpdateAlignment(tagType, Int)
	assert.NoError(t, st.DeclareMember(tagType, "x", Int, offset))
	offset += st.Sizeof(Int)

	offset = st.Align(offset, Int)
	st.UpdateAlignment(tagType, Int)
	assert.NoError(t, st.DeclareMember(tagType, "y", Int, offset))
	offset += st.Sizeof(Int)

	st.UpdateSize(tagType, offset)
	assert.Equal(t, 8, st.Sizeof(tagType))

	m, err := st.GetMember(tagType, "y")
	assert.NoError(t, err)
	assert.Equal(t, 4, m.Offset)

	err = st.DeclareMember(tagType, "x", Int, 0)
	assert.Error(t, err)
}

func TestSymbolTablePointerSizing(t *testing.T) {
	st := NewSymbolTable()
	ptrToChar := Char.AddPtr()
	assert.Equal(t, st.Sizeof(Int), st.Sizeof(ptrToChar))
	assert.Equal(t, 1, st.GetAddSize(Int))
	assert.Equal(t, st.Sizeof(Char), st.GetAddSize(ptrToChar))
}

func TestSymbolTableFixParams(t *testing.T) {
	st := NewSymbolTable()
	st.CreateScope()
	a, _ := st.DeclareID("a", Int, 0, LOCAL)
	b, _ := st.DeclareID("b", Int, 4, LOCAL)

	st.FixParams(8)

	assert.Equal(t, 8+st.Sizeof(Int)-0, a.Value)
	assert.Equal(t, 8+st.Sizeof(Int)-4, b.Value)
}
