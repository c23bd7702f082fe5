package debugger

import (
	"sync/atomic"

	"github.com/dshills/luadap/internal/dap"
	"github.com/dshills/luadap/internal/interp"
)

// mainThreadID is the fixed identity of the single execution thread
// this backend reports.
const mainThreadID = 0

// Events is the outbound event surface of a debug session.
// *dap.Client implements it.
type Events interface {
	Initialized()
	Stopped(body dap.StoppedEventBody)
	Output(body dap.OutputEventBody)
	Exited(code int)
	Terminated()
	Log(text string)
}

// Controller runs one script on a dedicated goroutine, the execution
// session, and owns all interpreter state exclusively on that
// goroutine. When a statement hits a breakpoint the session parks in a
// pause loop, servicing commands from the command channel until one
// directs it to continue.
type Controller struct {
	events      Events
	runtime     interp.Runtime
	breakpoints *Registry

	// cmds is an unbuffered rendezvous: submitters block until the
	// pause loop takes their command.
	cmds chan Command

	started atomic.Bool
}

// NewController creates a controller that consults breakpoints on every
// statement and reports through events.
func NewController(runtime interp.Runtime, breakpoints *Registry, events Events) *Controller {
	return &Controller{
		events:      events,
		runtime:     runtime,
		breakpoints: breakpoints,
		cmds:        make(chan Command),
	}
}

// Started reports whether an execution session has been launched.
func (c *Controller) Started() bool {
	return c.started.Load()
}

// Start spawns the execution session goroutine for the script at path.
// It does not block; progress is reported through events. Only one
// session may ever be started per controller.
func (c *Controller) Start(path string) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrSessionActive
	}
	go c.run(path)
	return nil
}

// run is the execution session. Whatever happens during evaluation ends
// in the same terminal sequence: one output event with the result or
// error text, an exited event, and a terminated event.
func (c *Controller) run(path string) {
	c.events.Log("evaluation start: " + path)

	result, err := c.eval(path)

	output := result
	code := 0
	if err != nil {
		output = err.Error()
		code = 1
	}

	c.events.Output(dap.OutputEventBody{Output: output})
	c.events.Exited(code)
	c.events.Terminated()
	c.events.Log("evaluation finished: " + path)
}

// eval parses the script, installs the statement hook, and evaluates
// the program to completion. A parse failure returns before any hook is
// installed.
func (c *Controller) eval(path string) (string, error) {
	prog, err := c.runtime.Parse(path)
	if err != nil {
		return "", err
	}

	ev, err := c.runtime.NewEvaluator(prog)
	if err != nil {
		return "", err
	}
	defer ev.Close()

	ev.SetHook(c.statementHook(ev))
	return ev.Run()
}

// statementHook checks the registry before every statement and, on a
// hit, announces the stop and parks the session in the pause loop until
// a command directs it to continue.
func (c *Controller) statementHook(ev interp.Evaluator) interp.Hook {
	return func(span interp.Span) {
		if !c.breakpoints.ShouldBreak(span.File, span) {
			return
		}

		c.events.Stopped(dap.StoppedEventBody{
			Reason:            "breakpoint",
			Description:       "Paused on breakpoint",
			ThreadID:          mainThreadID,
			AllThreadsStopped: true,
		})

		for cmd := range c.cmds {
			if cmd(span, ev) == Continue {
				break
			}
		}
	}
}
