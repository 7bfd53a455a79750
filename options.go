package main

import (
	"io"

	"github.com/subc-lang/subc/internal/flushio"
)

// VMOption configures a VM at construction time (functional options pattern).
type VMOption interface {
	applyVM(vm *VM)
}

// VMOptions collects a slice of VMOption into a single one, applied in order.
type VMOptions []VMOption

func (opts VMOptions) apply(vm *VM) {
	for _, opt := range opts {
		opt.applyVM(vm)
	}
}

func (opts VMOptions) applyVM(vm *VM) { opts.apply(vm) }

type noVMOption struct{}

func (noVMOption) applyVM(*VM) {}

// WithOutput directs the VM's printf output to w. Multiple uses combine
// (each writes to all given writers), following flushio.WriteFlushers.
func WithOutput(w io.Writer) VMOption {
	if w == nil {
		return noVMOption{}
	}
	return vmOptionFunc(func(vm *VM) {
		wf := flushio.NewWriteFlusher(w)
		if vm.out == nil {
			vm.out = wf
		} else {
			vm.out = flushio.WriteFlushers(vm.out, wf)
		}
	})
}

// WithMemSize sets the VM's total memory image size in cells, overriding
// defaultMemSize. If n is smaller than the data segment being loaded plus 64
// cells, that larger size is used instead.
func WithMemSize(n int) VMOption {
	return vmOptionFunc(func(vm *VM) { vm.memSize = n })
}

// WithTrace directs per-instruction trace lines (pc, opcode, operand,
// registers) to logf. A nil logf disables tracing, the default.
func WithTrace(logf func(mess string, args ...interface{})) VMOption {
	return vmOptionFunc(func(vm *VM) { vm.logfn = logf })
}

type vmOptionFunc func(vm *VM)

func (f vmOptionFunc) applyVM(vm *VM) { f(vm) }

// CompilerOption configures a Compiler at construction time.
type CompilerOption interface {
	applyCompiler(c *Compiler)
}

// CompilerOptions collects a slice of CompilerOption into a single one.
type CompilerOptions []CompilerOption

func (opts CompilerOptions) apply(c *Compiler) {
	for _, opt := range opts {
		opt.applyCompiler(c)
	}
}

func (opts CompilerOptions) applyCompiler(c *Compiler) { opts.apply(c) }

type compilerOptionFunc func(c *Compiler)

func (f compilerOptionFunc) applyCompiler(c *Compiler) { f(c) }

// WithCompilerTrace sets logf as the Compiler's trace function. The parser
// does not call it, so no compiler trace lines are produced.
func WithCompilerTrace(logf func(mess string, args ...interface{})) CompilerOption {
	return compilerOptionFunc(func(c *Compiler) { c.logfn = logf })
}
