package luavm

import (
	"fmt"
	"os"

	"github.com/yuin/gopher-lua/parse"

	"github.com/dshills/luadap/internal/interp"
)

// Runtime parses Lua scripts and builds evaluators for them.
type Runtime struct {
	printFn func(text string)
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithPrint routes the script's print output to fn, one call per print
// statement. Without it print writes to the process stdout, which
// corrupts a stdio transport.
func WithPrint(fn func(text string)) Option {
	return func(r *Runtime) {
		r.printFn = fn
	}
}

// New creates a Lua runtime.
func New(opts ...Option) *Runtime {
	r := &Runtime{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Parse reads and parses the Lua script at path and assigns statement
// spans.
func (r *Runtime) Parse(path string) (interp.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	chunk, err := parse.Parse(f, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return newProgram(path, chunk), nil
}

// NewEvaluator builds a fresh Lua state for prog.
func (r *Runtime) NewEvaluator(prog interp.Program) (interp.Evaluator, error) {
	p, ok := prog.(*Program)
	if !ok {
		return nil, fmt.Errorf("program %s was not parsed by this runtime", prog.Path())
	}
	return newEvaluator(p, r.printFn), nil
}
