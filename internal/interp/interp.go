// Package interp defines the boundary between the debugger core and a
// script interpreter.
//
// The debugger never touches interpreter internals directly. It parses
// scripts through a Runtime, runs them through an Evaluator, and observes
// execution through a per-statement Hook. Everything the protocol layer
// reports (stack frames, variables, evaluation results) comes through the
// types in this package.
package interp

// Span identifies a statement's source range. Spans are assigned by the
// parser; parsing identical file content twice yields equal spans, which
// is what makes them usable as breakpoint set members.
//
// Lines and columns are 0-based. Interpreters that do not track columns
// report 0.
type Span struct {
	File    string
	Line    int
	Col     int
	EndLine int
	EndCol  int
}

// Hook is invoked before each statement executes, with that statement's
// span. It runs on the evaluator's goroutine and may block it.
type Hook func(Span)

// Frame is one entry of the interpreter call stack. Location is the span
// of the call site: where the call was made from, not where the callee
// currently is. It is nil when the interpreter cannot attribute the call
// to a statement.
type Frame struct {
	Name     string
	Location *Span
}

// Binding is a named value visible in the current scope, rendered in the
// interpreter's display form.
type Binding struct {
	Name  string
	Value string
	Type  string
}

// Runtime parses scripts and builds evaluators for them.
type Runtime interface {
	// Parse reads and parses the script at path.
	Parse(path string) (Program, error)

	// NewEvaluator builds a fresh interpreter instance for prog.
	NewEvaluator(prog Program) (Evaluator, error)
}

// Program is a parsed script.
type Program interface {
	// Path returns the file the program was parsed from.
	Path() string

	// StatementSpans returns the span of every statement in the
	// program, including statements nested in function bodies.
	StatementSpans() []Span
}

// Evaluator is a live interpreter instance. It is not safe for
// concurrent use: exactly one goroutine owns it, and all access from
// other goroutines must be funneled through that owner.
type Evaluator interface {
	// SetHook installs the per-statement hook. A nil hook disables
	// statement interception.
	SetHook(Hook)

	// Hook returns the currently installed hook, or nil.
	Hook() Hook

	// Run evaluates the program to completion and returns the
	// stringified result of the top-level chunk.
	Run() (string, error)

	// CallStack returns the function-call frames in call order,
	// outermost first. The top-level chunk is not itself a frame.
	CallStack() []Frame

	// Locals returns the bindings of the innermost scope.
	Locals() []Binding

	// Evaluate evaluates an expression against the current state and
	// returns its stringified value.
	Evaluate(expr string) (string, error)

	// Close releases interpreter resources.
	Close()
}
