package luavm

import (
	"strconv"

	"github.com/yuin/gopher-lua/ast"

	"github.com/dshills/luadap/internal/interp"
)

// hookGlobal is the Lua global the instrumented chunk calls before each
// statement. The evaluator binds it to a Go function that forwards to
// the installed statement hook.
const hookGlobal = "__luadap_hook"

// instrumentBlock assigns a span to every statement in stmts and
// returns the block with a hook call inserted before each one. Function
// bodies nested anywhere in the block are instrumented too.
func (p *Program) instrumentBlock(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts)*2)
	for _, stmt := range stmts {
		out = append(out, p.hookCall(stmt), stmt)
		p.instrumentStmt(stmt)
	}
	return out
}

// hookCall registers a span for stmt and builds the __luadap_hook(id)
// call that precedes it.
func (p *Program) hookCall(stmt ast.Stmt) ast.Stmt {
	endLine := stmt.LastLine()
	if endLine == 0 {
		endLine = stmt.Line()
	}

	id := len(p.spans)
	span := interp.Span{
		File:    p.path,
		Line:    stmt.Line() - 1,
		EndLine: endLine - 1,
	}
	p.spans = append(p.spans, span)
	if _, ok := p.byLine[span.Line]; !ok {
		p.byLine[span.Line] = span
	}

	arg := &ast.NumberExpr{Value: strconv.Itoa(id)}
	arg.SetLine(stmt.Line())

	fn := &ast.IdentExpr{Value: hookGlobal}
	fn.SetLine(stmt.Line())

	callExpr := &ast.FuncCallExpr{Func: fn, Args: []ast.Expr{arg}}
	callExpr.SetLine(stmt.Line())

	call := &ast.FuncCallStmt{Expr: callExpr}
	call.SetLine(stmt.Line())
	call.SetLastLine(stmt.Line())
	return call
}

// instrumentStmt instruments the blocks and expressions nested in one
// statement.
func (p *Program) instrumentStmt(stmt ast.Stmt) {
	switch st := stmt.(type) {
	case *ast.AssignStmt:
		p.instrumentExprs(st.Lhs)
		p.instrumentExprs(st.Rhs)
	case *ast.LocalAssignStmt:
		p.instrumentExprs(st.Exprs)
	case *ast.FuncCallStmt:
		p.instrumentExpr(st.Expr)
	case *ast.DoBlockStmt:
		st.Stmts = p.instrumentBlock(st.Stmts)
	case *ast.WhileStmt:
		p.instrumentExpr(st.Condition)
		st.Stmts = p.instrumentBlock(st.Stmts)
	case *ast.RepeatStmt:
		st.Stmts = p.instrumentBlock(st.Stmts)
		p.instrumentExpr(st.Condition)
	case *ast.IfStmt:
		p.instrumentExpr(st.Condition)
		st.Then = p.instrumentBlock(st.Then)
		st.Else = p.instrumentBlock(st.Else)
	case *ast.NumberForStmt:
		p.instrumentExpr(st.Init)
		p.instrumentExpr(st.Limit)
		p.instrumentExpr(st.Step)
		st.Stmts = p.instrumentBlock(st.Stmts)
	case *ast.GenericForStmt:
		p.instrumentExprs(st.Exprs)
		st.Stmts = p.instrumentBlock(st.Stmts)
	case *ast.FuncDefStmt:
		p.instrumentExpr(st.Func)
	case *ast.ReturnStmt:
		p.instrumentExprs(st.Exprs)
	}
}

func (p *Program) instrumentExprs(exprs []ast.Expr) {
	for _, expr := range exprs {
		p.instrumentExpr(expr)
	}
}

// instrumentExpr descends into an expression looking for function
// literals, whose bodies get instrumented like any other block.
func (p *Program) instrumentExpr(expr ast.Expr) {
	switch ex := expr.(type) {
	case nil:
	case *ast.FunctionExpr:
		ex.Stmts = p.instrumentBlock(ex.Stmts)
	case *ast.AttrGetExpr:
		p.instrumentExpr(ex.Object)
		p.instrumentExpr(ex.Key)
	case *ast.TableExpr:
		for _, field := range ex.Fields {
			p.instrumentExpr(field.Key)
			p.instrumentExpr(field.Value)
		}
	case *ast.FuncCallExpr:
		p.instrumentExpr(ex.Func)
		p.instrumentExpr(ex.Receiver)
		p.instrumentExprs(ex.Args)
	case *ast.LogicalOpExpr:
		p.instrumentExpr(ex.Lhs)
		p.instrumentExpr(ex.Rhs)
	case *ast.RelationalOpExpr:
		p.instrumentExpr(ex.Lhs)
		p.instrumentExpr(ex.Rhs)
	case *ast.StringConcatOpExpr:
		p.instrumentExpr(ex.Lhs)
		p.instrumentExpr(ex.Rhs)
	case *ast.ArithmeticOpExpr:
		p.instrumentExpr(ex.Lhs)
		p.instrumentExpr(ex.Rhs)
	case *ast.UnaryMinusOpExpr:
		p.instrumentExpr(ex.Expr)
	case *ast.UnaryNotOpExpr:
		p.instrumentExpr(ex.Expr)
	case *ast.UnaryLenOpExpr:
		p.instrumentExpr(ex.Expr)
	}
}
