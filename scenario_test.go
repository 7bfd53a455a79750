package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

// scenario is one compile-and-run case, grounded on spec.md §8's six worked
// examples.
type scenario struct {
	name       string
	src        string
	wantOutput string
	wantCode   int
}

var scenarios = []scenario{
	{
		name:       "return literal",
		src:        `int main(){ return 0; }`,
		wantOutput: "exit(0)\n",
		wantCode:   0,
	},
	{
		name:       "operator precedence",
		src:        `int main(){ return 2+3*4; }`,
		wantOutput: "exit(14)\n",
		wantCode:   14,
	},
	{
		name: "while loop accumulation",
		src: `int main(){ int i; int s; s=0; i=1; while(i<=10){ s=s+i; i=i+1; } return s; }`,
		wantOutput: "exit(55)\n",
		wantCode:   55,
	},
	{
		name:       "recursive fibonacci",
		src:        `int fib(int n){ if(n<2) return n; return fib(n-1)+fib(n-2); } int main(){ return fib(10); }`,
		wantOutput: "exit(55)\n",
		wantCode:   55,
	},
	{
		name:       "printf dereferences a string pointer",
		src:        `int main(){ char *p; p = "hi"; printf("%s\n", p); return 0; }`,
		wantOutput: "hi\nexit(0)\n",
		wantCode:   0,
	},
	{
		name: "struct allocation and member access",
		src: `struct P { int x; int y; }; int main(){ struct P *p; p = malloc(sizeof(struct P)); p->x = 3; p->y = 4; return p->x + p->y; }`,
		wantOutput: "exit(7)\n",
		wantCode:   7,
	},
}

func compileAndRun(src string) (string, int, error) {
	c := NewCompiler(src)
	entry, prog, data, err := c.Compile()
	if err != nil {
		return "", 0, err
	}
	var out bytes.Buffer
	vm := NewVM(prog, data, WithOutput(&out))
	code, err := vm.Run(entry)
	return out.String(), code, err
}

func TestScenarios(t *testing.T) {
	for _, sc := range scenarios {
		sc := sc
		t.Run(sc.name, func(t *testing.T) {
			out, code, err := compileAndRun(sc.src)
			assert.NoError(t, err)
			assert.Equal(t, sc.wantOutput, out)
			assert.Equal(t, sc.wantCode, code)
		})
	}
}

// TestScenariosConcurrently compiles and runs every scenario in parallel,
// collecting the first failure — grounded on the teacher's errgroup-based
// scenario harness (scripts/gen_vm_expects.go).
func TestScenariosConcurrently(t *testing.T) {
	var g errgroup.Group
	for _, sc := range scenarios {
		sc := sc
		g.Go(func() error {
			out, code, err := compileAndRun(sc.src)
			if err != nil {
				return err
			}
			if out != sc.wantOutput {
				return errMismatch(sc.name, "output", sc.wantOutput, out)
			}
			if code != sc.wantCode {
				return errMismatch(sc.name, "exit code", sc.wantCode, code)
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())
}

// TestDeterminism compiles then runs a scenario twice and checks for
// identical results, per spec.md §8's determinism property.
func TestDeterminism(t *testing.T) {
	for _, sc := range scenarios {
		out1, code1, err1 := compileAndRun(sc.src)
		out2, code2, err2 := compileAndRun(sc.src)
		assert.NoError(t, err1)
		assert.NoError(t, err2)
		assert.Equal(t, out1, out2)
		assert.Equal(t, code1, code2)
	}
}

type mismatchError struct {
	scenario, field string
	want, got       interface{}
}

func errMismatch(scenario, field string, want, got interface{}) error {
	return &mismatchError{scenario, field, want, got}
}

func (e *mismatchError) Error() string {
	return e.scenario + ": " + e.field + " mismatch"
}
