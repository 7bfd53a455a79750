package main

// TypeID identifies a type: a small built-in scalar, a struct allocated a
// fresh ID at its tag declaration, or a pointer level stacked additively on
// top of either (see spec.md §3).
type TypeID int

// Built-in scalar types and the pointer-level step. Composite types are
// allocated fresh IDs starting at 3, strictly below Ptr.
const (
	Void TypeID = 0
	Char TypeID = 1
	Int  TypeID = 2
	Ptr  TypeID = 256
)

// IsPointer reports whether t denotes at least one level of indirection.
func (t TypeID) IsPointer() bool { return t >= Ptr }

// Pointee returns the type one indirection level down from t.
func (t TypeID) Pointee() TypeID { return t - Ptr }

// AddPtr returns t raised by one level of indirection.
func (t TypeID) AddPtr() TypeID { return t + Ptr }

// sizeVoid, sizeChar and sizeInt are the storage sizes, in bytes, of the
// built-in types; the VM
// models a "byte" as one cell (see spec.md §4.6), so these also double as
// cell counts.
const (
	sizeVoid = 0
	sizeChar = 1
	sizeInt  = 4
)
