package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/subc-lang/subc/internal/logio"
)

func main() {
	os.Exit(run())
}

// run implements the CLI: compile the one given source file and execute it,
// returning the process exit code. It is split out from main so that every
// deferred cleanup (the logger, the VM's writers, the dump) actually runs
// before the process exits — os.Exit itself never does.
func run() int {
	var (
		trace   bool
		dump    bool
		memSize uint
		timeout time.Duration
	)
	flag.BoolVar(&trace, "trace", false, "enable per-instruction trace logging")
	flag.BoolVar(&dump, "dump", false, "print a disassembly/memory dump after execution")
	flag.UintVar(&memSize, "mem-size", defaultMemSize, "VM memory image size, in cells")
	flag.DurationVar(&timeout, "timeout", 0, "abort and report an error if execution runs this long")
	flag.Parse()

	log := logio.Logger{}
	log.SetOutput(os.Stderr)
	defer log.Close()

	if flag.NArg() != 1 {
		log.Errorf("usage: %s <source-file>", os.Args[0])
		return log.ExitCode()
	}

	src, err := ioutil.ReadFile(flag.Arg(0))
	if err != nil {
		log.ErrorIf(err)
		return log.ExitCode()
	}

	var compilerOpts []CompilerOption
	if trace {
		compilerOpts = append(compilerOpts, WithCompilerTrace(log.Leveledf("TRACE")))
	}
	c := NewCompiler(string(src), compilerOpts...)

	entry, prog, data, cerr := c.Compile()
	if cerr != nil {
		// spec.md §6: compile diagnostics are "line:col, message" on standard
		// output, not a leveled stderr log line — CompileError.Error() is
		// already in that exact form.
		fmt.Fprintln(os.Stdout, cerr)
		return 1
	}

	vmOpts := []VMOption{WithOutput(os.Stdout), WithMemSize(int(memSize))}
	if trace {
		vmOpts = append(vmOpts, WithTrace(log.Leveledf("TRACE")))
	}
	vm := NewVM(prog, data, vmOpts...)
	defer vm.Close()

	if dump {
		lw := &logio.Writer{Logf: log.Leveledf("DUMP")}
		defer lw.Close()
		defer func() { dumpVM(vm, entry, lw) }()
	}

	code, rerr := runVM(vm, entry, timeout)
	if rerr != nil {
		log.ErrorIf(rerr)
		return log.ExitCode()
	}
	return code
}

// runVM executes vm, optionally bounded by a wall-clock timeout. A timeout
// is reported as an error but does not stop the VM's goroutine — spec.md §5
// gives the VM itself no cancellation semantics; this is purely a CLI-level
// safety net for runaway programs.
func runVM(vm *VM, entry int, timeout time.Duration) (int, error) {
	if timeout <= 0 {
		return vm.Run(entry)
	}

	type result struct {
		code int
		err  error
	}
	resc := make(chan result, 1)
	go func() {
		code, err := vm.Run(entry)
		resc <- result{code, err}
	}()
	select {
	case res := <-resc:
		return res.code, res.err
	case <-time.After(timeout):
		return 0, fmt.Errorf("execution exceeded timeout of %v", timeout)
	}
}
