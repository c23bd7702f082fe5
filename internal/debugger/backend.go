package debugger

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/dshills/luadap/internal/dap"
	"github.com/dshills/luadap/internal/interp"
)

// localsReference is the opaque variables reference for the single
// "Locals" scope. There is only ever one scope, so one fixed id
// suffices.
const localsReference = 2000

// Backend is the protocol adapter: it implements dap.Handler with one
// method per request. Handlers either mutate session state directly
// (breakpoints, launch target), package a unit of work for the paused
// session, or answer immediately. Several handlers may run
// concurrently; everything that touches live interpreter state goes
// through the command channel.
type Backend struct {
	events      Events
	runtime     interp.Runtime
	breakpoints *Registry
	ctrl        *Controller
	sessionID   string

	launchMu   sync.Mutex
	launchPath string
}

// NewBackend creates a backend debugging scripts via runtime and
// emitting events through events.
func NewBackend(runtime interp.Runtime, events Events) *Backend {
	breakpoints := NewRegistry()
	return &Backend{
		events:      events,
		runtime:     runtime,
		breakpoints: breakpoints,
		ctrl:        NewController(runtime, breakpoints, events),
		sessionID:   uuid.New().String(),
	}
}

// Initialize announces capabilities and emits the initialized event.
// setVariable and stepInTargets are advertised but not implemented;
// clients degrade gracefully when the corresponding requests fail.
func (b *Backend) Initialize(_ dap.InitializeRequestArguments) (*dap.Capabilities, error) {
	b.events.Log("session " + b.sessionID + " initialized")
	b.events.Initialized()
	return &dap.Capabilities{
		SupportsConfigurationDoneRequest: true,
		SupportsEvaluateForHovers:        true,
		SupportsSetVariable:              true,
		SupportsStepInTargetsRequest:     true,
	}, nil
}

// SetBreakpoints replaces the breakpoint set for one file. The file is
// parsed fresh; requested lines are verified only on an exact
// statement-start match. A file that fails to parse keeps no
// breakpoints and reports every request unverified.
func (b *Backend) SetBreakpoints(args dap.SetBreakpointsArguments) (*dap.SetBreakpointsResponseBody, error) {
	path := args.Source.Path
	if path == "" {
		return nil, errors.New("setBreakpoints: source path required")
	}

	if len(args.Breakpoints) == 0 {
		b.breakpoints.ClearFile(path)
		return &dap.SetBreakpointsResponseBody{Breakpoints: []dap.Breakpoint{}}, nil
	}

	lines := make([]int, len(args.Breakpoints))
	for i, sb := range args.Breakpoints {
		lines[i] = sb.Line
	}

	prog, err := b.runtime.Parse(path)
	if err != nil {
		// Fail soft: a broken file simply has no active breakpoints.
		b.breakpoints.ClearFile(path)
		return &dap.SetBreakpointsResponseBody{
			Breakpoints: make([]dap.Breakpoint, len(lines)),
		}, nil
	}

	spans, verified := ResolveLines(prog, lines)
	b.breakpoints.ReplaceFile(path, spans)

	result := make([]dap.Breakpoint, len(lines))
	for i := range result {
		result[i] = dap.Breakpoint{Verified: verified[i]}
	}
	return &dap.SetBreakpointsResponseBody{Breakpoints: result}, nil
}

// SetExceptionBreakpoints accepts the request without any state change:
// breaking on errors is always on by policy.
func (b *Backend) SetExceptionBreakpoints(_ dap.SetExceptionBreakpointsArguments) error {
	return nil
}

// Launch records the program to run. Execution does not start until
// configurationDone. A second launch before then overwrites the target.
func (b *Backend) Launch(args json.RawMessage) error {
	program := gjson.GetBytes(args, "program")
	if program.Type != gjson.String {
		return ErrNoProgram
	}

	b.launchMu.Lock()
	b.launchPath = program.String()
	b.launchMu.Unlock()
	return nil
}

// ConfigurationDone starts the execution session for the pending launch
// target, if one was set.
func (b *Backend) ConfigurationDone() error {
	b.launchMu.Lock()
	path := b.launchPath
	b.launchMu.Unlock()

	if path == "" {
		return nil
	}
	return b.ctrl.Start(path)
}

// Threads reports the single fixed execution thread.
func (b *Backend) Threads() (*dap.ThreadsResponseBody, error) {
	return &dap.ThreadsResponseBody{
		Threads: []dap.Thread{{ID: mainThreadID, Name: "main"}},
	}, nil
}

// StackTrace snapshots the paused call stack. Read-only: the session
// stays paused.
func (b *Backend) StackTrace(_ dap.StackTraceArguments) (*dap.StackTraceResponseBody, error) {
	if !b.ctrl.Started() {
		return nil, ErrNoSession
	}

	frames := withEvaluator(b.ctrl.cmds, func(span interp.Span, ev interp.Evaluator) []dap.StackFrame {
		return TranslateStack(span, ev.CallStack())
	})
	return &dap.StackTraceResponseBody{
		StackFrames: frames,
		TotalFrames: len(frames),
	}, nil
}

// Scopes reports the single "Locals" scope with a live variable count.
func (b *Backend) Scopes(_ dap.ScopesArguments) (*dap.ScopesResponseBody, error) {
	if !b.ctrl.Started() {
		return nil, ErrNoSession
	}

	count := withEvaluator(b.ctrl.cmds, func(_ interp.Span, ev interp.Evaluator) int {
		return len(ev.Locals())
	})
	return &dap.ScopesResponseBody{
		Scopes: []dap.Scope{{
			Name:               "Locals",
			NamedVariables:     count,
			VariablesReference: localsReference,
			Expensive:          false,
		}},
	}, nil
}

// Variables snapshots the current bindings. Read-only: calling it twice
// without an intervening continue yields identical results.
func (b *Backend) Variables(_ dap.VariablesArguments) (*dap.VariablesResponseBody, error) {
	if !b.ctrl.Started() {
		return nil, ErrNoSession
	}

	variables := withEvaluator(b.ctrl.cmds, func(_ interp.Span, ev interp.Evaluator) []dap.Variable {
		return TranslateBindings(ev.Locals())
	})
	return &dap.VariablesResponseBody{Variables: variables}, nil
}

// Continue releases the pause loop and resumes execution.
func (b *Backend) Continue(_ dap.ContinueArguments) (*dap.ContinueResponseBody, error) {
	if !b.ctrl.Started() {
		return nil, ErrNoSession
	}

	injectContinue(b.ctrl.cmds)
	return &dap.ContinueResponseBody{}, nil
}

// Evaluate evaluates an expression against the live state. The
// statement hook is parked for the duration so the evaluation cannot
// itself hit a breakpoint and re-enter the pause loop; evaluation
// errors become the response text rather than a failed request.
func (b *Backend) Evaluate(args dap.EvaluateArguments) (*dap.EvaluateResponseBody, error) {
	if !b.ctrl.Started() {
		return nil, ErrNoSession
	}

	text := withEvaluator(b.ctrl.cmds, func(_ interp.Span, ev interp.Evaluator) string {
		hook := ev.Hook()
		ev.SetHook(nil)
		result, err := ev.Evaluate(args.Expression)
		ev.SetHook(hook)
		if err != nil {
			return err.Error()
		}
		return result
	})
	return &dap.EvaluateResponseBody{Result: text}, nil
}

// Disconnect acknowledges the client's departure.
func (b *Backend) Disconnect(_ dap.DisconnectArguments) error {
	b.events.Log("session " + b.sessionID + " disconnected")
	return nil
}
