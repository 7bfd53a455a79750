package main

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/subc-lang/subc/internal/flushio"
	"github.com/subc-lang/subc/internal/panicerr"
)

const defaultMemSize = 2048

// VM executes a compiled Program against a single linear memory image: the
// data segment at low addresses, a bump heap immediately above it, and a
// descending call stack starting at the top (spec.md §3, "VM memory image").
type VM struct {
	program *Program
	data    []int

	mem  []int
	heap int

	pc, sp, bp, ax int

	halted   bool
	exitCode int

	memSize int
	out     flushio.WriteFlusher
	logfn   func(mess string, args ...interface{})
	closers []io.Closer
}

// NewVM prepares a VM to run program against dataSegment, ready for Run.
func NewVM(program *Program, dataSegment []int, opts ...VMOption) *VM {
	vm := &VM{program: program, data: dataSegment, memSize: defaultMemSize}
	VMOptions(opts).apply(vm)
	if vm.out == nil {
		vm.out = flushio.NewWriteFlusher(ioutil.Discard)
	}
	return vm
}

func (vm *VM) logf(mess string, args ...interface{}) {
	if vm.logfn != nil {
		vm.logfn(mess, args...)
	}
}

// Close releases any writers opened on the VM's behalf by its options.
func (vm *VM) Close() (err error) {
	for i := len(vm.closers) - 1; i >= 0; i-- {
		if cerr := vm.closers[i].Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (vm *VM) halt(err error) {
	func() {
		defer func() { recover() }()
		if vm.out != nil {
			vm.out.Flush()
		}
	}()
	panic(haltError{err})
}

// Run executes the program to completion, starting at entry (the address of
// main's first instruction), and returns main's return value as a process
// exit code.
func (vm *VM) Run(entry int) (exitCode int, err error) {
	rerr := panicerr.Recover("subc vm", func() error {
		vm.init(entry)
		vm.exec()
		return nil
	})
	if rerr == nil {
		vm.out.Flush()
		return vm.exitCode, nil
	}
	var he haltError
	if errors.As(rerr, &he) {
		return 0, he.error
	}
	return 0, rerr
}

// init lays out the memory image and initial stack frame per spec.md §4.6.
func (vm *VM) init(entry int) {
	size := vm.memSize
	if n := len(vm.data) + 64; n > size {
		size = n
	}
	vm.mem = make([]int, size)
	copy(vm.mem, vm.data)
	vm.heap = len(vm.data)

	// the driver's trailing sentinel: main's RET lands here, pushes its own
	// return value, and EXIT reads it back off as the process exit code.
	vm.program.Add(int(PSH), int(EXIT))

	vm.sp = (len(vm.mem) - 1) &^ (sizeInt - 1)
	vm.bp = 0
	vm.ax = 0

	vm.mem[vm.sp] = vm.program.Len() - 2 // return address: the PSH above
	vm.sp -= sizeInt
	vm.mem[vm.sp] = vm.bp
	vm.bp = vm.sp

	vm.pc = entry
}

func (vm *VM) exec() {
	for !vm.halted {
		vm.step()
	}
}

func (vm *VM) step() {
	if vm.logfn != nil {
		vm.traceStep()
	}
	code := vm.program.At(vm.pc)
	vm.pc++
	if code < 0 || code >= int(opcodeCount) {
		vm.halt(opcodeError(code))
	}
	vmCodeTable[code](vm)
}

func (vm *VM) traceStep() {
	op := Opcode(vm.program.At(vm.pc))
	operand := ""
	if op.hasOperand() {
		operand = strconv.Itoa(vm.program.At(vm.pc + 1))
	}
	vm.logf("@%-5d %-6s %-6s ax:%-6d sp:%-6d bp:%-6d", vm.pc, op, operand, vm.ax, vm.sp, vm.bp)
}

var vmCodeTable [opcodeCount]func(vm *VM)

func init() {
	vmCodeTable = [opcodeCount]func(vm *VM){
		LEA: func(vm *VM) { vm.ax = vm.bp + vm.program.At(vm.pc); vm.pc++ },
		IMM: func(vm *VM) { vm.ax = vm.program.At(vm.pc); vm.pc++ },
		JMP: func(vm *VM) { vm.pc = vm.program.At(vm.pc) },
		JSR: func(vm *VM) {
			target := vm.program.At(vm.pc)
			ret := vm.pc + 1
			vm.sp -= sizeInt
			vm.mem[vm.sp] = ret
			vm.sp -= sizeInt
			vm.mem[vm.sp] = vm.bp
			vm.bp = vm.sp
			vm.pc = target
		},
		BZ: func(vm *VM) {
			if vm.ax == 0 {
				vm.pc = vm.program.At(vm.pc)
			} else {
				vm.pc++
			}
		},
		BNZ: func(vm *VM) {
			if vm.ax != 0 {
				vm.pc = vm.program.At(vm.pc)
			} else {
				vm.pc++
			}
		},
		ADJ: func(vm *VM) { vm.sp += vm.program.At(vm.pc); vm.pc++ },
		RET: func(vm *VM) {
			vm.sp = vm.bp
			vm.bp = vm.mem[vm.sp]
			vm.sp += sizeInt
			vm.pc = vm.mem[vm.sp]
			vm.sp += sizeInt
		},

		LI: func(vm *VM) { vm.ax = vm.mem[vm.ax] },
		LC: func(vm *VM) { vm.ax = vm.mem[vm.ax] },
		SI: func(vm *VM) { vm.mem[vm.mem[vm.sp]] = vm.ax; vm.sp += sizeInt },
		SC: func(vm *VM) { vm.mem[vm.mem[vm.sp]] = vm.ax; vm.sp += sizeInt },
		PSH: func(vm *VM) {
			vm.sp -= sizeInt
			vm.mem[vm.sp] = vm.ax
		},

		IOR: func(vm *VM) { vm.ax = vm.mem[vm.sp] | vm.ax; vm.sp += sizeInt },
		XOR: func(vm *VM) { vm.ax = vm.mem[vm.sp] ^ vm.ax; vm.sp += sizeInt },
		AND: func(vm *VM) { vm.ax = vm.mem[vm.sp] & vm.ax; vm.sp += sizeInt },
		EQL: func(vm *VM) { vm.ax = boolInt(vm.mem[vm.sp] == vm.ax); vm.sp += sizeInt },
		NEQ: func(vm *VM) { vm.ax = boolInt(vm.mem[vm.sp] != vm.ax); vm.sp += sizeInt },
		LSS: func(vm *VM) { vm.ax = boolInt(vm.mem[vm.sp] < vm.ax); vm.sp += sizeInt },
		GTR: func(vm *VM) { vm.ax = boolInt(vm.mem[vm.sp] > vm.ax); vm.sp += sizeInt },
		LEQ: func(vm *VM) { vm.ax = boolInt(vm.mem[vm.sp] <= vm.ax); vm.sp += sizeInt },
		GEQ: func(vm *VM) { vm.ax = boolInt(vm.mem[vm.sp] >= vm.ax); vm.sp += sizeInt },
		SHL: func(vm *VM) { vm.ax = vm.mem[vm.sp] << uint(vm.ax); vm.sp += sizeInt },
		SHR: func(vm *VM) { vm.ax = vm.mem[vm.sp] >> uint(vm.ax); vm.sp += sizeInt },
		ADD: func(vm *VM) { vm.ax = vm.mem[vm.sp] + vm.ax; vm.sp += sizeInt },
		SUB: func(vm *VM) { vm.ax = vm.mem[vm.sp] - vm.ax; vm.sp += sizeInt },
		MUL: func(vm *VM) { vm.ax = vm.mem[vm.sp] * vm.ax; vm.sp += sizeInt },
		DIV: func(vm *VM) { vm.ax = vm.mem[vm.sp] / vm.ax; vm.sp += sizeInt },
		MOD: func(vm *VM) { vm.ax = vm.mem[vm.sp] % vm.ax; vm.sp += sizeInt },

		PRINTF: (*VM).doPrintf,
		MALLOC: (*VM).doMalloc,
		FREE:   func(vm *VM) {},
		EXIT:   (*VM).doExit,
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// doPrintf implements the printf(fmt, ...) builtin. printf is variadic, yet
// PRINTF has no operand cell of its own: the argument byte
// count it needs lives in the operand of the ADJ the compiler always emits
// immediately after the call (see the Opcode doc comment). It peeks at that
// cell without consuming it, leaving the ADJ to run normally right after.
func (vm *VM) doPrintf() {
	argBytes := vm.program.At(vm.pc + 1)
	start := vm.sp - sizeInt + argBytes

	strAddr := vm.mem[start]
	end := strAddr
	for vm.mem[end] != 0 {
		end++
	}
	raw := make([]byte, end-strAddr)
	for i := strAddr; i < end; i++ {
		raw[i-strAddr] = byte(vm.mem[i])
	}
	format := strings.ReplaceAll(string(raw), `\n`, "\n")

	var args []int
	for addr := start - sizeInt; addr > vm.sp-sizeInt; addr -= sizeInt {
		args = append(args, vm.mem[addr])
	}

	fmt.Fprint(vm.out, cPrintf(format, args, vm.cString))
}

func (vm *VM) cString(addr int) string {
	end := addr
	for vm.mem[end] != 0 {
		end++
	}
	raw := make([]byte, end-addr)
	for i := addr; i < end; i++ {
		raw[i-addr] = byte(vm.mem[i])
	}
	return string(raw)
}

// cPrintf renders a printf-style format string against args, consuming one
// arg per %-verb (%d, %c, %s, %x); %% writes a literal '%' and consumes no
// arg. deref resolves a %s argument (a data segment address) to its
// NUL-terminated string content.
func cPrintf(format string, args []int, deref func(addr int) string) string {
	var sb strings.Builder
	ai := 0
	next := func() int {
		if ai < len(args) {
			v := args[ai]
			ai++
			return v
		}
		return 0
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i == len(format)-1 {
			sb.WriteByte(c)
			continue
		}
		i++
		switch format[i] {
		case 'd':
			fmt.Fprintf(&sb, "%d", next())
		case 'x':
			fmt.Fprintf(&sb, "%x", next())
		case 'c':
			sb.WriteByte(byte(next()))
		case 's':
			sb.WriteString(deref(next()))
		case '%':
			sb.WriteByte('%')
		default:
			sb.WriteByte('%')
			sb.WriteByte(format[i])
		}
	}
	return sb.String()
}

// doMalloc implements malloc(size): a bump allocator that only ever grows
// (spec.md §9 — heap is bump-only, no GC, free is a no-op).
func (vm *VM) doMalloc() {
	size := vm.mem[vm.sp]
	vm.ax = vm.heap
	vm.heap += size
}

func (vm *VM) doExit() {
	code := vm.mem[vm.sp]
	fmt.Fprintf(vm.out, "exit(%d)\n", code)
	vm.exitCode = code
	vm.halted = true
}
