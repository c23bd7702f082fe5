package debugger

import (
	"fmt"
	"sync"

	"github.com/dshills/luadap/internal/dap"
	"github.com/dshills/luadap/internal/interp"
)

// fakeProgram is a parsed script with predetermined statement spans.
type fakeProgram struct {
	path  string
	spans []interp.Span
}

func (p *fakeProgram) Path() string                  { return p.path }
func (p *fakeProgram) StatementSpans() []interp.Span { return p.spans }

// fakeEvaluator drives the hook once per program span, standing in for
// actual script execution.
type fakeEvaluator struct {
	prog   *fakeProgram
	hook   interp.Hook
	result string
	runErr error

	frames []interp.Frame
	locals []interp.Binding

	evalResults map[string]string

	// hookActiveDuringEval records, per Evaluate call, whether a hook
	// was installed while the expression ran.
	hookActiveDuringEval []bool

	closed bool
}

func (e *fakeEvaluator) SetHook(hook interp.Hook) { e.hook = hook }
func (e *fakeEvaluator) Hook() interp.Hook        { return e.hook }

func (e *fakeEvaluator) Run() (string, error) {
	for _, span := range e.prog.spans {
		if e.hook != nil {
			e.hook(span)
		}
	}
	return e.result, e.runErr
}

func (e *fakeEvaluator) CallStack() []interp.Frame { return e.frames }
func (e *fakeEvaluator) Locals() []interp.Binding  { return e.locals }

func (e *fakeEvaluator) Evaluate(expr string) (string, error) {
	e.hookActiveDuringEval = append(e.hookActiveDuringEval, e.hook != nil)
	if result, ok := e.evalResults[expr]; ok {
		return result, nil
	}
	return "", fmt.Errorf("undefined expression %q", expr)
}

func (e *fakeEvaluator) Close() { e.closed = true }

// fakeRuntime serves canned programs by path.
type fakeRuntime struct {
	mu       sync.Mutex
	programs map[string]*fakeProgram
	parseErr error

	result string
	runErr error

	frames []interp.Frame
	locals []interp.Binding

	evalResults map[string]string

	evaluators []*fakeEvaluator
}

func (r *fakeRuntime) Parse(path string) (interp.Program, error) {
	if r.parseErr != nil {
		return nil, r.parseErr
	}
	prog, ok := r.programs[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	return prog, nil
}

func (r *fakeRuntime) NewEvaluator(prog interp.Program) (interp.Evaluator, error) {
	ev := &fakeEvaluator{
		prog:        prog.(*fakeProgram),
		result:      r.result,
		runErr:      r.runErr,
		frames:      r.frames,
		locals:      r.locals,
		evalResults: r.evalResults,
	}
	r.mu.Lock()
	r.evaluators = append(r.evaluators, ev)
	r.mu.Unlock()
	return ev, nil
}

// eventRecorder captures the event stream. The stopped channel lets
// tests wait for the session to pause; done closes on terminated.
type eventRecorder struct {
	mu      sync.Mutex
	names   []string
	outputs []dap.OutputEventBody
	stops   []dap.StoppedEventBody
	code    int

	stopped chan dap.StoppedEventBody
	done    chan struct{}
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{
		stopped: make(chan dap.StoppedEventBody, 8),
		done:    make(chan struct{}),
	}
}

func (r *eventRecorder) record(name string) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
}

func (r *eventRecorder) Initialized() { r.record("initialized") }

func (r *eventRecorder) Stopped(body dap.StoppedEventBody) {
	r.mu.Lock()
	r.names = append(r.names, "stopped")
	r.stops = append(r.stops, body)
	r.mu.Unlock()
	r.stopped <- body
}

func (r *eventRecorder) Output(body dap.OutputEventBody) {
	r.mu.Lock()
	r.names = append(r.names, "output")
	r.outputs = append(r.outputs, body)
	r.mu.Unlock()
}

func (r *eventRecorder) Exited(code int) {
	r.mu.Lock()
	r.names = append(r.names, "exited")
	r.code = code
	r.mu.Unlock()
}

func (r *eventRecorder) Terminated() {
	r.record("terminated")
	close(r.done)
}

func (r *eventRecorder) Log(string) {}

// eventNames returns the recorded event order.
func (r *eventRecorder) eventNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *eventRecorder) exitCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.code
}

func (r *eventRecorder) scriptOutputs() []dap.OutputEventBody {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]dap.OutputEventBody, len(r.outputs))
	copy(out, r.outputs)
	return out
}
