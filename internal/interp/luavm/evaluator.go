package luavm

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/dshills/luadap/internal/interp"
)

// Evaluator is a live gopher-lua state executing one instrumented
// program. All methods must be called from the goroutine that owns the
// evaluator; the statement hook and every introspection method run
// within the dynamic extent of the instrumented chunk's execution.
type Evaluator struct {
	prog *Program
	L    *lua.LState
	hook interp.Hook
}

func newEvaluator(p *Program, printFn func(string)) *Evaluator {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // opened selectively below
	})
	openSafeLibraries(L)

	ev := &Evaluator{prog: p, L: L}
	L.SetGlobal(hookGlobal, L.NewFunction(ev.luaHook))
	if printFn != nil {
		L.SetGlobal("print", L.NewFunction(printTo(printFn)))
	}
	return ev
}

// openSafeLibraries opens only Lua standard libraries that cannot touch
// the filesystem or spawn processes. io, os, debug and package stay
// closed.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	// Each loader leaves its module table on the stack; drop them so
	// the chunk's own results start at the bottom.
	L.SetTop(0)
}

// luaHook is the Go function bound to the instrumented hook calls. It
// forwards the statement's span to the installed hook, if any.
func (e *Evaluator) luaHook(L *lua.LState) int {
	id := L.CheckInt(1)
	if hook := e.hook; hook != nil && id >= 0 && id < len(e.prog.spans) {
		hook(e.prog.spans[id])
	}
	return 0
}

// printTo replaces the base library's print so script output can be
// captured instead of written to the process stdout.
func printTo(fn func(string)) lua.LGFunction {
	return func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		fn(strings.Join(parts, "\t"))
		return 0
	}
}

// SetHook installs the per-statement hook; nil disables interception.
func (e *Evaluator) SetHook(hook interp.Hook) {
	e.hook = hook
}

// Hook returns the currently installed hook.
func (e *Evaluator) Hook() interp.Hook {
	return e.hook
}

// Run compiles the instrumented chunk and evaluates it to completion,
// returning the stringified chunk result. Lua runtime errors are
// returned as errors, never propagated as panics.
func (e *Evaluator) Run() (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	proto, err := lua.Compile(e.prog.chunk, e.prog.path)
	if err != nil {
		return "", fmt.Errorf("compile %s: %w", e.prog.path, err)
	}

	e.L.Push(e.L.NewFunctionFromProto(proto))
	if err := e.L.PCall(0, lua.MultRet, nil); err != nil {
		return "", err
	}
	return e.popValues(0), nil
}

// popValues stringifies and removes every stack value above base.
func (e *Evaluator) popValues(base int) string {
	n := e.L.GetTop() - base
	if n <= 0 {
		return lua.LNil.String()
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = e.L.Get(base + i + 1).String()
	}
	e.L.SetTop(base)
	return strings.Join(parts, "\t")
}

// CallStack returns the function-call frames in call order, outermost
// first. Each frame carries the name of the function entered and the
// span of the statement its caller was executing, the call site. The
// top-level chunk is not a frame; its current statement becomes the
// call site of the outermost function frame.
func (e *Evaluator) CallStack() []interp.Frame {
	type level struct {
		name    string
		current int
	}

	// Level 0 is the hook's own Go function; Lua frames start at 1.
	var levels []level
	for lvl := 1; ; lvl++ {
		dbg, ok := e.L.GetStack(lvl)
		if !ok {
			break
		}
		if _, err := e.L.GetInfo("nSl", dbg, lua.LNil); err != nil {
			break
		}
		levels = append(levels, level{name: dbg.Name, current: dbg.CurrentLine})
	}

	if len(levels) <= 1 {
		return nil
	}

	frames := make([]interp.Frame, 0, len(levels)-1)
	for i := len(levels) - 2; i >= 0; i-- {
		name := levels[i].name
		if name == "" {
			name = "anonymous"
		}

		var location *interp.Span
		if span, ok := e.prog.spanAtLine(levels[i+1].current - 1); ok {
			location = &span
		}
		frames = append(frames, interp.Frame{Name: name, Location: location})
	}
	return frames
}

// Locals returns the named locals of the innermost Lua frame. Compiler
// temporaries (whose names are parenthesized) are skipped.
func (e *Evaluator) Locals() []interp.Binding {
	dbg, ok := e.L.GetStack(1)
	if !ok {
		return nil
	}

	var out []interp.Binding
	for i := 1; ; i++ {
		name, value := e.L.GetLocal(dbg, i)
		if name == "" {
			break
		}
		if strings.HasPrefix(name, "(") {
			continue
		}
		out = append(out, interp.Binding{
			Name:  name,
			Value: value.String(),
			Type:  value.Type().String(),
		})
	}
	return out
}

// Evaluate compiles expr and runs it against the live state. The
// expression is first compiled as "return <expr>"; input that only
// parses as a statement is run as-is. Globals and top-level state are
// visible; function locals are not (chunks compile against the global
// environment).
func (e *Evaluator) Evaluate(expr string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	chunk, perr := parse.Parse(strings.NewReader("return "+expr), "<eval>")
	if perr != nil {
		chunk, perr = parse.Parse(strings.NewReader(expr), "<eval>")
		if perr != nil {
			return "", fmt.Errorf("parse expression: %w", perr)
		}
	}

	proto, cerr := lua.Compile(chunk, "<eval>")
	if cerr != nil {
		return "", fmt.Errorf("compile expression: %w", cerr)
	}

	base := e.L.GetTop()
	e.L.Push(e.L.NewFunctionFromProto(proto))
	if err := e.L.PCall(0, lua.MultRet, nil); err != nil {
		e.L.SetTop(base)
		return "", err
	}
	return e.popValues(base), nil
}

// Close releases the Lua state.
func (e *Evaluator) Close() {
	e.L.Close()
}
