package debugger

import (
	"github.com/dshills/luadap/internal/interp"
)

// Next directs the pause loop after a command has run.
type Next int

const (
	// Continue resumes script execution.
	Continue Next = iota
	// RemainPaused keeps the session paused for further commands.
	RemainPaused
)

// Command is a unit of work executed on the session goroutine against
// the live evaluator while it is paused. Commands are the only way any
// other goroutine may touch interpreter state.
type Command func(span interp.Span, ev interp.Evaluator) Next

// inject submits fn to the paused session and blocks the calling
// goroutine until the pause loop has run it and delivered the result.
// Each call gets its own one-shot reply channel, so concurrent callers
// never see each other's results. With no running consumer the send
// blocks indefinitely; callers guard against that with Started.
func inject[T any](cmds chan<- Command, fn func(interp.Span, interp.Evaluator) (Next, T)) T {
	reply := make(chan T, 1)
	cmds <- func(span interp.Span, ev interp.Evaluator) Next {
		next, result := fn(span, ev)
		reply <- result
		return next
	}
	return <-reply
}

// withEvaluator runs fn against the paused evaluator and keeps the
// session paused afterwards. Inspection requests go through here so
// answering them never resumes execution as a side effect.
func withEvaluator[T any](cmds chan<- Command, fn func(interp.Span, interp.Evaluator) T) T {
	return inject(cmds, func(span interp.Span, ev interp.Evaluator) (Next, T) {
		return RemainPaused, fn(span, ev)
	})
}

// injectContinue resumes execution. The unit of work carries no result.
func injectContinue(cmds chan<- Command) {
	inject(cmds, func(interp.Span, interp.Evaluator) (Next, struct{}) {
		return Continue, struct{}{}
	})
}
