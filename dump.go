package main

import (
	"fmt"
	"io"
)

// dumpVM writes a post-mortem disassembly of prog followed by a compact
// memory dump of vm, adapted from the teacher's vmDumper: that one walks a
// FORTH dictionary of linked words, this one walks a flat Program of
// fixed-width opcode cells (spec.md §4.6, §9).
func dumpVM(vm *VM, entry int, out io.Writer) {
	fmt.Fprintf(out, "# entry @%d\n", entry)
	dumpDisassembly(vm.program, out)
	dumpRegisters(vm, out)
	dumpMemory(vm, out)
}

func dumpDisassembly(prog *Program, out io.Writer) {
	fmt.Fprintf(out, "# Program (%d cells)\n", prog.Len())
	for pc := 0; pc < prog.Len(); {
		op := Opcode(prog.At(pc))
		if op.hasOperand() && pc+1 < prog.Len() {
			fmt.Fprintf(out, "  @%-5d %-6s %d\n", pc, op, prog.At(pc+1))
			pc += 2
		} else {
			fmt.Fprintf(out, "  @%-5d %-6s\n", pc, op)
			pc++
		}
	}
}

func dumpRegisters(vm *VM, out io.Writer) {
	fmt.Fprintf(out, "# registers pc:%d sp:%d bp:%d ax:%d heap:%d\n", vm.pc, vm.sp, vm.bp, vm.ax, vm.heap)
}

func dumpMemory(vm *VM, out io.Writer) {
	fmt.Fprintf(out, "# Memory (%d cells, heap frontier @%d)\n", len(vm.mem), vm.heap)
	const perLine = 8
	for base := 0; base < len(vm.mem); base += perLine {
		end := base + perLine
		if end > len(vm.mem) {
			end = len(vm.mem)
		}
		allZero := true
		for _, v := range vm.mem[base:end] {
			if v != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			continue
		}
		fmt.Fprintf(out, "  @%-5d", base)
		for _, v := range vm.mem[base:end] {
			fmt.Fprintf(out, " %6d", v)
		}
		fmt.Fprintln(out)
	}
}
