package luavm

import (
	"github.com/yuin/gopher-lua/ast"

	"github.com/dshills/luadap/internal/interp"
)

// Program is a parsed Lua chunk whose statements have been assigned
// spans and instrumented with statement-hook calls.
type Program struct {
	path   string
	chunk  []ast.Stmt
	spans  []interp.Span
	byLine map[int]interp.Span
}

func newProgram(path string, chunk []ast.Stmt) *Program {
	p := &Program{
		path:   path,
		byLine: make(map[int]interp.Span),
	}
	p.chunk = p.instrumentBlock(chunk)
	return p
}

// Path returns the file the program was parsed from.
func (p *Program) Path() string {
	return p.path
}

// StatementSpans returns the span of every statement, including those
// nested in function bodies.
func (p *Program) StatementSpans() []interp.Span {
	out := make([]interp.Span, len(p.spans))
	copy(out, p.spans)
	return out
}

// spanAtLine returns the span of the statement starting at the 0-based
// line, if any. Used to attribute call sites to statements.
func (p *Program) spanAtLine(line int) (interp.Span, bool) {
	span, ok := p.byLine[line]
	return span, ok
}
